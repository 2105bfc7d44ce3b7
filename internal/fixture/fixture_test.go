package fixture

import (
	"testing"
)

func TestBaseAddressConversion(t *testing.T) {
	tests := []struct {
		name     string
		universe int
		channel  int
		absolute int
	}{
		{"universe 1 channel 1", 1, 1, 1},
		{"universe 1 channel 512", 1, 512, 512},
		{"universe 2 channel 1", 2, 1, 513},
		{"universe 3 channel 100", 3, 100, 1124},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New("Test", "Generic", 1, tt.universe, tt.channel)
			if got := f.BaseAddress(); got != tt.absolute {
				t.Errorf("BaseAddress() = %d, want %d", got, tt.absolute)
			}

			u, c := SplitAddress(tt.absolute)
			if u != tt.universe || c != tt.channel {
				t.Errorf("SplitAddress(%d) = (%d, %d), want (%d, %d)",
					tt.absolute, u, c, tt.universe, tt.channel)
			}
		})
	}
}

func TestSetBaseAddress(t *testing.T) {
	f := New("Test", "Generic", 1, 1, 1)
	f.SetBaseAddress(513)
	if f.Universe != 2 || f.Channel != 1 {
		t.Errorf("SetBaseAddress(513) = universe %d channel %d, want 2/1", f.Universe, f.Channel)
	}
}

func TestPatched(t *testing.T) {
	tests := []struct {
		name     string
		universe int
		channel  int
		flagged  bool
		want     bool
	}{
		{"patched", 1, 1, false, true},
		{"unpatched", 0, 0, false, false},
		{"zero universe", 0, 1, false, false},
		{"zero channel", 1, 0, false, false},
		{"flagged at ingestion", 1, 1, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New("Test", "Generic", 1, tt.universe, tt.channel)
			f.AddressInvalid = tt.flagged
			if got := f.Patched(); got != tt.want {
				t.Errorf("Patched() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinkable(t *testing.T) {
	f := New("Test", "Generic", 101, 1, 1)
	if !f.Linkable() {
		t.Error("fixture with a numeric ID should be linkable")
	}

	f.FixtureID = FixtureIDNone
	if f.Linkable() {
		t.Error("fixture with the placeholder ID should not be linkable")
	}

	f.FixtureID = 101
	f.FixtureIDInvalid = true
	if f.Linkable() {
		t.Error("fixture flagged at ingestion should not be linkable")
	}
}

func TestNewDefaults(t *testing.T) {
	f := New("Spot 1", "MAC Aura", 101, 1, 25)

	if f.ID == "" {
		t.Error("New() should assign a record ID")
	}
	if !f.Selected {
		t.Error("New fixtures should be selected by default")
	}
	if f.Role != RoleUnassigned {
		t.Errorf("New fixture role = %q, want %q", f.Role, RoleUnassigned)
	}
	if f.Matched {
		t.Error("New fixtures should start unmatched")
	}
}

func TestInvalidateDerived(t *testing.T) {
	f := New("Test", "Generic", 1, 1, 1)
	f.Attributes = map[string]int{"Dimmer": 0}
	f.Addresses = map[string]int{"Dimmer": 1}
	f.Universes = map[string]int{"Dimmer": 1}
	f.Channels = map[string]int{"Dimmer": 1}
	f.Sequences = map[string]int{"Dimmer": 1001}

	f.InvalidateDerived()

	if f.Addresses != nil || f.Universes != nil || f.Channels != nil || f.Sequences != nil {
		t.Error("InvalidateDerived() should clear all derived maps")
	}
	if f.Attributes == nil {
		t.Error("InvalidateDerived() should not clear the attribute offsets")
	}
}

func TestClearMatch(t *testing.T) {
	f := New("Test", "Generic", 1, 1, 1)
	f.Matched = true
	f.ProfileName = "Generic RGBW"
	f.ModeName = "Default"
	f.Attributes = map[string]int{"Dimmer": 0}
	f.Addresses = map[string]int{"Dimmer": 1}

	f.ClearMatch()

	if f.Matched || f.ProfileName != "" || f.ModeName != "" {
		t.Error("ClearMatch() should remove profile linkage")
	}
	if f.Attributes != nil || f.Addresses != nil {
		t.Error("ClearMatch() should clear attribute and derived maps")
	}
}

func TestGroupHelpers(t *testing.T) {
	fixtures := []*Fixture{
		New("A", "TypeX", 1, 1, 1),
		New("B", "TypeY", 2, 1, 10),
		New("C", "TypeX", 3, 1, 20),
	}
	fixtures[0].Role = RolePrimary
	fixtures[1].Role = RoleSecondary

	types := Types(fixtures)
	if len(types) != 2 || types[0] != "TypeX" || types[1] != "TypeY" {
		t.Errorf("Types() = %v, want [TypeX TypeY]", types)
	}

	group := ByType(fixtures, "TypeX")
	if len(group) != 2 {
		t.Errorf("ByType(TypeX) returned %d fixtures, want 2", len(group))
	}

	primaries := ByRole(fixtures, RolePrimary)
	if len(primaries) != 1 || primaries[0].Name != "A" {
		t.Errorf("ByRole(RolePrimary) = %v, want [A]", primaries)
	}

	if got := FindByID(fixtures, fixtures[2].ID); got != fixtures[2] {
		t.Error("FindByID should return the matching fixture")
	}
	if got := FindByID(fixtures, "missing"); got != nil {
		t.Error("FindByID should return nil for unknown IDs")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUnassigned, RolePrimary, RoleSecondary} {
		if !r.Valid() {
			t.Errorf("Role %q should be valid", r)
		}
	}
	if Role("master").Valid() {
		t.Error("Unknown role strings should not be valid")
	}
}
