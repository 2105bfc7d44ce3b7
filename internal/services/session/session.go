// Package session holds the in-memory working state of one documentation
// project: the fixture list, the profile registry, attribute selection,
// and the numbering and export configurations. All mutations go through
// the session so state changes can be pushed to subscribed clients.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/gdtf"
	"github.com/attraddr/attraddr-go/internal/services/address"
	"github.com/attraddr/attraddr-go/internal/services/export"
	"github.com/attraddr/attraddr-go/internal/services/link"
	"github.com/attraddr/attraddr-go/internal/services/match"
	"github.com/attraddr/attraddr-go/internal/services/pubsub"
	"github.com/attraddr/attraddr-go/internal/services/sequence"
	"github.com/attraddr/attraddr-go/internal/services/settings"
)

// ErrFixtureNotFound indicates the referenced fixture is not in the
// session.
var ErrFixtureNotFound = errors.New("fixture not found")

// Session is the mutable project state. Safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	fixtures      []*fixture.Fixture
	registry      *gdtf.Registry
	selectedAttrs []string

	sequenceConfig sequence.Config
	exportConfig   export.FormatConfig

	store *settings.Store // nil when running without persistence
	bus   *pubsub.PubSub  // nil when no one subscribes
}

// New creates an empty session. Both store and bus may be nil.
func New(store *settings.Store, bus *pubsub.PubSub) *Session {
	return &Session{
		registry:       gdtf.NewRegistry(),
		sequenceConfig: sequence.DefaultConfig(),
		exportConfig:   export.DefaultFormatConfig(),
		store:          store,
		bus:            bus,
	}
}

// LoadConfigs pulls the persisted numbering and export configurations
// into the session.
func (s *Session) LoadConfigs(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	seqCfg, err := s.store.SequenceConfig(ctx)
	if err != nil {
		return err
	}
	expCfg, err := s.store.ExportConfig(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sequenceConfig = seqCfg
	s.exportConfig = expCfg
	s.mu.Unlock()
	return nil
}

func (s *Session) publish(topic pubsub.Topic, message interface{}) {
	if s.bus != nil {
		s.bus.PublishAll(topic, message)
	}
}

// Fixtures returns a snapshot of the fixture list. The fixtures themselves
// are shared; treat them as read-only outside the session.
func (s *Session) Fixtures() []*fixture.Fixture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*fixture.Fixture, len(s.fixtures))
	copy(out, s.fixtures)
	return out
}

// AddFixtures appends imported fixtures and merges any profiles that came
// with them.
func (s *Session) AddFixtures(fixtures []*fixture.Fixture, profiles *gdtf.Registry) {
	s.mu.Lock()
	s.fixtures = append(s.fixtures, fixtures...)
	s.registry.Merge(profiles)
	s.mu.Unlock()
	s.publish(pubsub.TopicFixturesUpdated, len(fixtures))
}

// ReplaceFixtures swaps the whole fixture list, keeping loaded profiles.
func (s *Session) ReplaceFixtures(fixtures []*fixture.Fixture, profiles *gdtf.Registry) {
	s.mu.Lock()
	s.fixtures = fixtures
	s.registry.Merge(profiles)
	s.mu.Unlock()
	s.publish(pubsub.TopicFixturesUpdated, len(fixtures))
}

// Clear empties the session.
func (s *Session) Clear() {
	s.mu.Lock()
	s.fixtures = nil
	s.registry = gdtf.NewRegistry()
	s.selectedAttrs = nil
	s.mu.Unlock()
	s.publish(pubsub.TopicFixturesUpdated, 0)
}

// Registry returns the live profile registry.
func (s *Session) Registry() *gdtf.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// LoadProfiles merges external profiles into the registry.
func (s *Session) LoadProfiles(profiles *gdtf.Registry) {
	s.mu.Lock()
	s.registry.Merge(profiles)
	count := s.registry.Len()
	s.mu.Unlock()
	s.publish(pubsub.TopicProfilesLoaded, count)
}

func (s *Session) findFixture(id string) (*fixture.Fixture, error) {
	f := fixture.FindByID(s.fixtures, id)
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFixtureNotFound, id)
	}
	return f, nil
}

// SetRole assigns a role to one fixture.
func (s *Session) SetRole(id string, role fixture.Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	s.mu.Lock()
	f, err := s.findFixture(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	f.Role = role
	s.mu.Unlock()
	s.publish(pubsub.TopicFixturesUpdated, id)
	return nil
}

// SetSelected includes or excludes one fixture from processing.
func (s *Session) SetSelected(id string, selected bool) error {
	s.mu.Lock()
	f, err := s.findFixture(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	f.Selected = selected
	s.mu.Unlock()
	s.publish(pubsub.TopicFixturesUpdated, id)
	return nil
}

// SetFixtureID corrects one fixture's console ID and clears the flag set
// when ingestion could not parse the source value.
func (s *Session) SetFixtureID(id string, fixtureID int) error {
	if fixtureID < 1 {
		return fmt.Errorf("invalid fixture id %d", fixtureID)
	}
	s.mu.Lock()
	f, err := s.findFixture(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	f.FixtureID = fixtureID
	f.FixtureIDInvalid = false
	s.mu.Unlock()
	s.publish(pubsub.TopicFixturesUpdated, id)
	return nil
}

// SetPatch corrects one fixture's DMX starting point and clears the flag
// set when ingestion could not parse the source value. Derived addresses
// are invalidated and must be re-resolved.
func (s *Session) SetPatch(id string, universe, channel int) error {
	if universe < 1 || channel < 1 || channel > fixture.UniverseSize {
		return fmt.Errorf("invalid patch %d.%d", universe, channel)
	}
	s.mu.Lock()
	f, err := s.findFixture(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	f.Universe = universe
	f.Channel = channel
	f.AddressInvalid = false
	f.InvalidateDerived()
	s.mu.Unlock()
	s.publish(pubsub.TopicFixturesUpdated, id)
	return nil
}

// SetSelectedAttributes restricts resolution and export to the given
// attribute names. An empty list means all matched attributes.
func (s *Session) SetSelectedAttributes(attrs []string) {
	s.mu.Lock()
	s.selectedAttrs = append([]string(nil), attrs...)
	s.mu.Unlock()
}

// SelectedAttributes returns the active attribute restriction, or the
// union of all matched attributes when no restriction is set.
func (s *Session) SelectedAttributes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedAttributesLocked()
}

func (s *Session) selectedAttributesLocked() []string {
	if len(s.selectedAttrs) > 0 {
		return append([]string(nil), s.selectedAttrs...)
	}
	seen := make(map[string]bool)
	var out []string
	for _, f := range s.fixtures {
		for attr := range f.Attributes {
			if !seen[attr] {
				seen[attr] = true
				out = append(out, attr)
			}
		}
	}
	sort.Strings(out)
	return out
}

// ApplyMatch matches one fixture-type group to a (profile, mode) pair and
// remembers the choice for future imports, together with the session's
// explicit attribute restriction.
func (s *Session) ApplyMatch(ctx context.Context, fixtureType, profileName, modeName string) error {
	s.mu.Lock()
	engine := match.NewEngine(s.registry)
	err := engine.ApplyMatch(s.fixtures, fixtureType, profileName, modeName)
	attrs := append([]string(nil), s.selectedAttrs...)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.store != nil {
		saved := settings.SavedMatch{ProfileName: profileName, ModeName: modeName, Attributes: attrs}
		if err := s.store.SaveMatch(ctx, fixtureType, saved); err != nil {
			return err
		}
	}
	s.publish(pubsub.TopicMatchesUpdated, fixtureType)
	return nil
}

// AutoMatch matches every unmatched fixture-type group, honoring saved
// preferences when a settings store is attached. When the session has no
// explicit attribute restriction, the restrictions remembered with the
// applied matches are adopted.
func (s *Session) AutoMatch(ctx context.Context) (match.AutoMatched, []string, error) {
	var prefs match.Preferences
	var saved settings.SavedMatches
	if s.store != nil {
		loaded, err := s.store.SavedMatches(ctx)
		if err != nil {
			return match.AutoMatched{}, nil, err
		}
		saved = loaded
		prefs = loaded
	}

	s.mu.Lock()
	engine := match.NewEngine(s.registry)
	matched, warnings := engine.AutoMatchAll(s.fixtures, prefs)
	if len(s.selectedAttrs) == 0 {
		s.selectedAttrs = savedAttributes(s.fixtures, saved)
	}
	s.mu.Unlock()

	if matched.Types > 0 {
		s.publish(pubsub.TopicMatchesUpdated, matched)
	}
	return matched, warnings, nil
}

// savedAttributes unions the remembered attribute restrictions of every
// matched fixture type, in fixture-type order.
func savedAttributes(fixtures []*fixture.Fixture, saved settings.SavedMatches) []string {
	if len(saved) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var attrs []string
	for _, fixtureType := range fixture.Types(fixtures) {
		group := fixture.ByType(fixtures, fixtureType)
		if len(group) == 0 || !group[0].Matched {
			continue
		}
		for _, a := range saved[fixtureType].Attributes {
			if !seen[a] {
				seen[a] = true
				attrs = append(attrs, a)
			}
		}
	}
	return attrs
}

// Candidates lists profiles plausibly matching a fixture type.
func (s *Session) Candidates(fixtureType string) []*gdtf.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return match.NewEngine(s.registry).Candidates(fixtureType)
}

// ResolveAddresses computes attribute addresses for all selected matched
// fixtures.
func (s *Session) ResolveAddresses() address.Summary {
	s.mu.Lock()
	summary := address.ResolveAll(s.fixtures, s.selectedAttributesLocked())
	s.mu.Unlock()
	s.publish(pubsub.TopicAddressesUpdated, summary)
	return summary
}

// AssignSequences numbers resolved attributes using the session's
// numbering configuration. Fixtures are numbered in fixture ID order.
func (s *Session) AssignSequences() (int, error) {
	s.mu.Lock()
	ordered := make([]*fixture.Fixture, len(s.fixtures))
	copy(ordered, s.fixtures)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].FixtureID < ordered[j].FixtureID
	})
	pairs := sequence.Pairs(ordered, s.selectedAttributesLocked())
	assigned, err := sequence.Assign(pairs, s.sequenceConfig)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	s.publish(pubsub.TopicSequencesUpdated, assigned)
	return assigned, nil
}

// Export renders the current state in the requested format.
func (s *Session) Export(format export.Format) (string, error) {
	s.mu.RLock()
	rows := export.BuildRows(s.fixtures)
	cfg := s.exportConfig
	s.mu.RUnlock()

	out, err := export.Export(rows, format, cfg)
	if err != nil {
		return "", err
	}
	s.publish(pubsub.TopicExportCompleted, string(format))
	return out, nil
}

// Links resolves the primary/secondary grouping of the current fixtures.
func (s *Session) Links() link.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return link.ResolveLinks(s.fixtures)
}

// Summary aggregates the session's matching and linking state.
type Summary struct {
	Match match.Summary `json:"match"`
	Link  link.Summary  `json:"link"`
}

// Summarize reports overall session progress.
func (s *Session) Summarize() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summary{
		Match: match.Summarize(s.fixtures),
		Link:  link.Summarize(s.fixtures),
	}
}

// SequenceConfig returns the active numbering configuration.
func (s *Session) SequenceConfig() sequence.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sequenceConfig
}

// SetSequenceConfig validates, applies, and persists the numbering
// configuration.
func (s *Session) SetSequenceConfig(ctx context.Context, cfg sequence.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.SaveSequenceConfig(ctx, cfg); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.sequenceConfig = cfg
	s.mu.Unlock()
	return nil
}

// ExportConfig returns the active MA3 export configuration.
func (s *Session) ExportConfig() export.FormatConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exportConfig
}

// SetExportConfig validates, applies, and persists the MA3 export
// configuration.
func (s *Session) SetExportConfig(ctx context.Context, cfg export.FormatConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.SaveExportConfig(ctx, cfg); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.exportConfig = cfg
	s.mu.Unlock()
	return nil
}
