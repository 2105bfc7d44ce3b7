package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attraddr/attraddr-go/internal/fixture"
)

func TestGuessMapping(t *testing.T) {
	headers := []string{"Fixture Name", "Model", "DMX Mode", "Universe", "Chan", "Unit Number"}
	m := GuessMapping(headers)

	assert.Equal(t, "Fixture Name", m.Name)
	assert.Equal(t, "Model", m.Type)
	assert.Equal(t, "DMX Mode", m.Mode)
	assert.Equal(t, "Universe", m.Universe)
	assert.Equal(t, "Chan", m.Channel)
	assert.Equal(t, "Unit Number", m.FixtureID)
	assert.Empty(t, m.Address)
}

func TestGuessMappingFlatAddress(t *testing.T) {
	m := GuessMapping([]string{"Name", "Type", "Address"})
	assert.Equal(t, "Address", m.Address)
	assert.Empty(t, m.Universe)
}

func TestGuessMappingHeaderClaimedOnce(t *testing.T) {
	// "Fixture Type" matches both name and type patterns; name claims it
	// first, so type must find another header or stay empty.
	m := GuessMapping([]string{"Fixture Type"})
	assert.Equal(t, "Fixture Type", m.Name)
	assert.Empty(t, m.Type)
}

func TestImportWithUniverseChannel(t *testing.T) {
	data := `Name,Type,Mode,Universe,Channel,ID
Spot 1,MAC Aura XB,Standard,2,1,101
Spot 2,MAC Aura XB,Standard,1,25,102`

	mapping := Mapping{Name: "Name", Type: "Type", Mode: "Mode", Universe: "Universe", Channel: "Channel", FixtureID: "ID"}
	res, err := Import(strings.NewReader(data), mapping, 1)
	require.NoError(t, err)
	require.Len(t, res.Fixtures, 2)
	assert.Empty(t, res.Warnings)

	f := res.Fixtures[0]
	assert.Equal(t, "Spot 1", f.Name)
	assert.Equal(t, "MAC Aura XB", f.Type)
	assert.Equal(t, "Standard", f.DeclaredMode)
	assert.Equal(t, 101, f.FixtureID)
	assert.Equal(t, 2, f.Universe)
	assert.Equal(t, 1, f.Channel)
	assert.Equal(t, fixture.SourceCSV, f.Source)
}

func TestImportWithFlatAddress(t *testing.T) {
	data := `Name,Address
Spot 1,513`

	res, err := Import(strings.NewReader(data), Mapping{Name: "Name", Address: "Address"}, 1)
	require.NoError(t, err)
	require.Len(t, res.Fixtures, 1)
	assert.Equal(t, 2, res.Fixtures[0].Universe)
	assert.Equal(t, 1, res.Fixtures[0].Channel)
}

func TestImportDefaults(t *testing.T) {
	data := `Name,Address,ID
,bogus,nope`

	res, err := Import(strings.NewReader(data), Mapping{Name: "Name", Address: "Address", FixtureID: "ID"}, 5)
	require.NoError(t, err)
	require.Len(t, res.Fixtures, 1)

	f := res.Fixtures[0]
	assert.Equal(t, "Fixture_5", f.Name)
	assert.Equal(t, "Unknown", f.Type)
	assert.Equal(t, 5, f.FixtureID)
	assert.True(t, f.FixtureIDInvalid, "unparseable id is flagged")
	assert.Equal(t, 1, f.BaseAddress())
	assert.True(t, f.AddressInvalid, "unparseable address is flagged")
	assert.Len(t, res.Warnings, 2)
}

func TestImportValidFieldsAreNotFlagged(t *testing.T) {
	data := `Name,Address,ID
Spot 1,513,101`

	res, err := Import(strings.NewReader(data), Mapping{Name: "Name", Address: "Address", FixtureID: "ID"}, 1)
	require.NoError(t, err)
	require.Len(t, res.Fixtures, 1)
	assert.False(t, res.Fixtures[0].AddressInvalid)
	assert.False(t, res.Fixtures[0].FixtureIDInvalid)
}

func TestImportInvalidUniverseChannel(t *testing.T) {
	data := `Name,Universe,Channel
Spot 1,1,600`

	res, err := Import(strings.NewReader(data), Mapping{Name: "Name", Universe: "Universe", Channel: "Channel"}, 1)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "invalid universe/channel")
	assert.Equal(t, 1, res.Fixtures[0].BaseAddress())
	assert.True(t, res.Fixtures[0].AddressInvalid)
}

func TestImportSequentialIDs(t *testing.T) {
	data := `Name
A
B
C`

	res, err := Import(strings.NewReader(data), Mapping{Name: "Name"}, 10)
	require.NoError(t, err)
	require.Len(t, res.Fixtures, 3)
	assert.Equal(t, 10, res.Fixtures[0].FixtureID)
	assert.Equal(t, 11, res.Fixtures[1].FixtureID)
	assert.Equal(t, 12, res.Fixtures[2].FixtureID)
}

func TestImportEmpty(t *testing.T) {
	_, err := Import(strings.NewReader(""), Mapping{}, 1)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Import(strings.NewReader("Name,Type\n"), Mapping{Name: "Name"}, 1)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestPreview(t *testing.T) {
	data := `Name,Type
A,Spot
B,Wash
C,Beam`

	headers, rows, err := Preview(strings.NewReader(data), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Type"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"A", "Spot"}, rows[0])
}
