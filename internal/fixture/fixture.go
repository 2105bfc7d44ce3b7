// Package fixture defines the fixture record, the unit of work that flows
// from import through matching, address resolution, sequencing, and export.
package fixture

import (
	"github.com/lucsky/cuid"
)

// UniverseSize is the number of DMX channels in one universe.
const UniverseSize = 512

// FixtureIDNone is the placeholder fixture ID for records whose source
// carried no usable numeric ID. Such fixtures are not linkable.
const FixtureIDNone = 0

// Role classifies a fixture in the primary/secondary linking model.
type Role string

const (
	RoleUnassigned Role = "UNASSIGNED"
	RolePrimary    Role = "PRIMARY"
	RoleSecondary  Role = "SECONDARY"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUnassigned, RolePrimary, RoleSecondary:
		return true
	}
	return false
}

// Source identifies which importer produced a fixture record.
type Source string

const (
	SourceMVR     Source = "MVR"
	SourceCSV     Source = "CSV"
	SourceConsole Source = "CONSOLE_XML"
	SourceManual  Source = "MANUAL"
)

// Fixture is one lighting device instance. Identity, declared type, and
// addressing come from the importer; profile linkage and the per-attribute
// maps are filled in by the matching and resolution engines.
type Fixture struct {
	// ID is the internal record identity, unique within a session.
	ID   string `json:"id"`
	Name string `json:"name"`
	UUID string `json:"uuid,omitempty"`

	// Type is the declared fixture-type/model name, the matching key.
	Type string `json:"type"`

	// FixtureID is the console patch identity and the primary/secondary
	// linking key. Not required unique across the project.
	FixtureID        int  `json:"fixtureId"`
	FixtureIDInvalid bool `json:"fixtureIdInvalid,omitempty"`

	// Universe and Channel are the 1-indexed DMX starting point.
	Universe       int  `json:"universe"`
	Channel        int  `json:"channel"`
	AddressInvalid bool `json:"addressInvalid,omitempty"`

	Role     Role   `json:"role"`
	Selected bool   `json:"selected"`
	Source   Source `json:"source,omitempty"`

	// DeclaredMode is the mode name carried by the source file, used as a
	// hint during matching. ModeName is the mode actually matched.
	DeclaredMode string `json:"declaredMode,omitempty"`

	Matched     bool   `json:"matched"`
	ProfileName string `json:"profileName,omitempty"`
	ModeName    string `json:"modeName,omitempty"`

	// Attributes maps attribute name to zero-based channel offset within
	// the matched mode. Set by the matching engine.
	Attributes map[string]int `json:"attributes,omitempty"`

	// Derived maps, keyed by attribute name. Filled by the address
	// resolution and sequence numbering engines; stale after a re-match
	// until recomputed.
	Addresses        map[string]int    `json:"addresses,omitempty"`
	Universes        map[string]int    `json:"universes,omitempty"`
	Channels         map[string]int    `json:"channels,omitempty"`
	Sequences        map[string]int    `json:"sequences,omitempty"`
	ActivationGroups map[string]string `json:"activationGroups,omitempty"`
}

// New creates a fixture record with a fresh ID, selected for export and
// with no role assigned.
func New(name, fixtureType string, fixtureID, universe, channel int) *Fixture {
	return &Fixture{
		ID:        cuid.New(),
		Name:      name,
		Type:      fixtureType,
		FixtureID: fixtureID,
		Universe:  universe,
		Channel:   channel,
		Role:      RoleUnassigned,
		Selected:  true,
	}
}

// BaseAddress returns the fixture's starting point as a flat 1-indexed
// absolute DMX address.
func (f *Fixture) BaseAddress() int {
	return (f.Universe-1)*UniverseSize + f.Channel
}

// Patched reports whether the fixture has a usable DMX starting point:
// a 1-indexed universe and channel that were not flagged at ingestion.
func (f *Fixture) Patched() bool {
	return f.Universe >= 1 && f.Channel >= 1 && !f.AddressInvalid
}

// Linkable reports whether the fixture can participate in primary and
// secondary linking, which requires a usable fixture ID.
func (f *Fixture) Linkable() bool {
	return f.FixtureID != FixtureIDNone && !f.FixtureIDInvalid
}

// SetBaseAddress sets universe and channel from a flat absolute address.
func (f *Fixture) SetBaseAddress(absolute int) {
	f.Universe, f.Channel = SplitAddress(absolute)
}

// SplitAddress converts a 1-indexed absolute DMX address into a 1-indexed
// (universe, channel) pair. Addresses past channel 512 roll into the next
// universe.
func SplitAddress(absolute int) (universe, channel int) {
	universe = ((absolute - 1) / UniverseSize) + 1
	channel = ((absolute - 1) % UniverseSize) + 1
	return universe, channel
}

// InvalidateDerived clears the address and sequence maps. Called when a
// group is re-matched so stale results are never exported.
func (f *Fixture) InvalidateDerived() {
	f.Addresses = nil
	f.Universes = nil
	f.Channels = nil
	f.Sequences = nil
}

// ClearMatch removes profile linkage and all derived state.
func (f *Fixture) ClearMatch() {
	f.Matched = false
	f.ProfileName = ""
	f.ModeName = ""
	f.Attributes = nil
	f.ActivationGroups = nil
	f.InvalidateDerived()
}

// Types returns the distinct declared fixture types in first-seen order.
func Types(fixtures []*Fixture) []string {
	seen := make(map[string]bool)
	var types []string
	for _, f := range fixtures {
		if !seen[f.Type] {
			seen[f.Type] = true
			types = append(types, f.Type)
		}
	}
	return types
}

// ByType returns all fixtures sharing the given declared type.
func ByType(fixtures []*Fixture, fixtureType string) []*Fixture {
	var group []*Fixture
	for _, f := range fixtures {
		if f.Type == fixtureType {
			group = append(group, f)
		}
	}
	return group
}

// ByRole returns all fixtures with the given role.
func ByRole(fixtures []*Fixture, role Role) []*Fixture {
	var out []*Fixture
	for _, f := range fixtures {
		if f.Role == role {
			out = append(out, f)
		}
	}
	return out
}

// FindByID returns the fixture with the given record ID, or nil.
func FindByID(fixtures []*Fixture, id string) *Fixture {
	for _, f := range fixtures {
		if f.ID == id {
			return f
		}
	}
	return nil
}
