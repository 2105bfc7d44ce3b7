package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/gdtf"
	"github.com/attraddr/attraddr-go/internal/services/export"
	"github.com/attraddr/attraddr-go/internal/services/match"
	"github.com/attraddr/attraddr-go/internal/services/pubsub"
	"github.com/attraddr/attraddr-go/internal/services/sequence"
	"github.com/attraddr/attraddr-go/internal/services/settings"
	"github.com/attraddr/attraddr-go/internal/services/testutil"
)

func testRegistry() *gdtf.Registry {
	reg := gdtf.NewRegistry()
	reg.Add(&gdtf.Profile{
		Name:   "MAC Aura XB Wash",
		Source: gdtf.SourceExternal,
		Modes: []gdtf.Mode{{
			Name: "Standard",
			Channels: []gdtf.Channel{
				{Attribute: "Dim", Offset: 0, Resolution: gdtf.Resolution8Bit},
				{Attribute: "Pan", Offset: 1, Resolution: gdtf.Resolution16Bit},
			},
		}},
	})
	return reg
}

func testFixtures() []*fixture.Fixture {
	f1 := fixture.New("Wash 1", "MAC Aura XB", 101, 1, 1)
	f2 := fixture.New("Wash 2", "MAC Aura XB", 102, 1, 10)
	return []*fixture.Fixture{f1, f2}
}

func TestFullWorkflow(t *testing.T) {
	s := New(nil, nil)
	s.AddFixtures(testFixtures(), nil)
	s.LoadProfiles(testRegistry())

	matched, warnings, err := s.AutoMatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, match.AutoMatched{Types: 1, Fixtures: 2}, matched)
	assert.Empty(t, warnings)

	summary := s.ResolveAddresses()
	assert.Equal(t, 2, summary.Resolved)
	assert.Empty(t, summary.Failures)

	assigned, err := s.AssignSequences()
	require.NoError(t, err)
	assert.Equal(t, 4, assigned)

	out, err := s.Export(export.FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, out, "Wash 1")
	assert.Contains(t, out, "1001")
}

func TestAssignSequencesOrdersByFixtureID(t *testing.T) {
	s := New(nil, nil)
	fixtures := testFixtures()
	// Insert out of order; numbering must still follow fixture IDs.
	s.AddFixtures([]*fixture.Fixture{fixtures[1], fixtures[0]}, nil)
	s.LoadProfiles(testRegistry())

	_, _, err := s.AutoMatch(context.Background())
	require.NoError(t, err)
	s.ResolveAddresses()

	_, err = s.AssignSequences()
	require.NoError(t, err)

	assert.Equal(t, 1001, fixtures[0].Sequences["Dim"], "fixture 101 numbers first")
	assert.Equal(t, 1003, fixtures[1].Sequences["Dim"])
}

func TestSetRoleAndSelected(t *testing.T) {
	s := New(nil, nil)
	fixtures := testFixtures()
	s.AddFixtures(fixtures, nil)

	require.NoError(t, s.SetRole(fixtures[0].ID, fixture.RolePrimary))
	assert.Equal(t, fixture.RolePrimary, fixtures[0].Role)

	assert.Error(t, s.SetRole(fixtures[0].ID, fixture.Role("BOSS")))
	assert.ErrorIs(t, s.SetRole("missing", fixture.RolePrimary), ErrFixtureNotFound)

	require.NoError(t, s.SetSelected(fixtures[1].ID, false))
	assert.False(t, fixtures[1].Selected)
}

func TestMatchPreferenceRemembersAttributes(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	store := settings.NewStore(tdb.DB)
	ctx := context.Background()

	first := New(store, nil)
	first.AddFixtures(testFixtures(), nil)
	first.LoadProfiles(testRegistry())
	first.SetSelectedAttributes([]string{"Dim"})
	require.NoError(t, first.ApplyMatch(ctx, "MAC Aura XB", "MAC Aura XB Wash", "Standard"))

	saved, err := store.SavedMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dim"}, saved["MAC Aura XB"].Attributes)

	// A fresh session with no restriction adopts the remembered one.
	second := New(store, nil)
	second.AddFixtures(testFixtures(), nil)
	second.LoadProfiles(testRegistry())
	_, _, err = second.AutoMatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dim"}, second.SelectedAttributes())
}

func TestAutoMatchKeepsExplicitAttributeRestriction(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)
	store := settings.NewStore(tdb.DB)
	ctx := context.Background()

	require.NoError(t, store.SaveMatch(ctx, "MAC Aura XB", settings.SavedMatch{
		ProfileName: "MAC Aura XB Wash",
		ModeName:    "Standard",
		Attributes:  []string{"Dim"},
	}))

	s := New(store, nil)
	s.AddFixtures(testFixtures(), nil)
	s.LoadProfiles(testRegistry())
	s.SetSelectedAttributes([]string{"Pan"})
	_, _, err := s.AutoMatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pan"}, s.SelectedAttributes())
}

func TestCorrectInvalidFields(t *testing.T) {
	s := New(nil, nil)
	f := fixture.New("Wash 1", "MAC Aura XB", 0, 1, 1)
	f.FixtureIDInvalid = true
	f.AddressInvalid = true
	f.Addresses = map[string]int{"Dim": 1}
	s.AddFixtures([]*fixture.Fixture{f}, nil)

	require.NoError(t, s.SetFixtureID(f.ID, 305))
	assert.Equal(t, 305, f.FixtureID)
	assert.False(t, f.FixtureIDInvalid)

	require.NoError(t, s.SetPatch(f.ID, 2, 101))
	assert.Equal(t, 2, f.Universe)
	assert.Equal(t, 101, f.Channel)
	assert.False(t, f.AddressInvalid)
	assert.Nil(t, f.Addresses, "re-patching discards resolved addresses")

	assert.Error(t, s.SetFixtureID(f.ID, 0))
	assert.Error(t, s.SetPatch(f.ID, 0, 1))
	assert.Error(t, s.SetPatch(f.ID, 1, 600))
	assert.ErrorIs(t, s.SetPatch("missing", 1, 1), ErrFixtureNotFound)
}

func TestSelectedAttributes(t *testing.T) {
	s := New(nil, nil)
	s.AddFixtures(testFixtures(), nil)
	s.LoadProfiles(testRegistry())
	_, _, err := s.AutoMatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Dim", "Pan"}, s.SelectedAttributes(), "default is all matched attributes")

	s.SetSelectedAttributes([]string{"Dim"})
	assert.Equal(t, []string{"Dim"}, s.SelectedAttributes())

	summary := s.ResolveAddresses()
	assert.Equal(t, 2, summary.Resolved)
	fixtures := s.Fixtures()
	assert.Contains(t, fixtures[0].Addresses, "Dim")
	assert.NotContains(t, fixtures[0].Addresses, "Pan")
}

func TestExportWithoutDataFails(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Export(export.FormatText)
	assert.ErrorIs(t, err, export.ErrNoRows)
}

func TestClear(t *testing.T) {
	s := New(nil, nil)
	s.AddFixtures(testFixtures(), testRegistry())
	require.NotEmpty(t, s.Fixtures())

	s.Clear()
	assert.Empty(t, s.Fixtures())
	assert.Equal(t, 0, s.Registry().Len())
}

func TestConfigsValidateOnSet(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()

	bad := sequence.Config{StartNumber: 0, Interval: 1, BreakSequences: 5}
	assert.Error(t, s.SetSequenceConfig(ctx, bad))

	good := sequence.Config{StartNumber: 3001, Interval: 2, AddBreaks: true, BreakSequences: 5}
	require.NoError(t, s.SetSequenceConfig(ctx, good))
	assert.Equal(t, good, s.SequenceConfig())

	badExp := export.DefaultFormatConfig()
	badExp.InTo = 999
	assert.Error(t, s.SetExportConfig(ctx, badExp))
}

func TestPublishesEvents(t *testing.T) {
	bus := pubsub.New()
	sub := bus.Subscribe(pubsub.TopicFixturesUpdated, "", 4)
	defer bus.Unsubscribe(sub)

	s := New(nil, bus)
	s.AddFixtures(testFixtures(), nil)

	select {
	case msg := <-sub.Channel:
		assert.Equal(t, 2, msg)
	default:
		t.Fatal("expected a fixtures-updated event")
	}
}

func TestSummarize(t *testing.T) {
	s := New(nil, nil)
	fixtures := testFixtures()
	s.AddFixtures(fixtures, nil)
	s.LoadProfiles(testRegistry())
	require.NoError(t, s.SetRole(fixtures[0].ID, fixture.RolePrimary))

	_, _, err := s.AutoMatch(context.Background())
	require.NoError(t, err)

	sum := s.Summarize()
	assert.Equal(t, 2, sum.Match.Total)
	assert.Equal(t, 2, sum.Match.Matched)
	assert.Equal(t, 1, sum.Link.Primaries)
	assert.Equal(t, 1, sum.Link.Unassigned)
}
