// Package gdtf provides the device-profile model: parsed GDTF profiles with
// named modes, each an ordered list of addressable attributes, and a registry
// that holds the loaded profile set.
package gdtf

import "sort"

// Resolution is the bit width of a channel.
type Resolution string

const (
	Resolution8Bit  Resolution = "8bit"
	Resolution16Bit Resolution = "16bit"
)

// Source distinguishes where a profile was loaded from. Embedded profiles
// (extracted from an MVR archive) are grouped before external ones but are
// otherwise equivalent.
type Source string

const (
	SourceEmbedded Source = "EMBEDDED"
	SourceExternal Source = "EXTERNAL"
)

// Channel is one addressable attribute within a mode.
type Channel struct {
	Attribute       string     `json:"attribute"`
	Offset          int        `json:"offset"` // zero-based within the mode footprint
	Resolution      Resolution `json:"resolution"`
	ActivationGroup string     `json:"activationGroup,omitempty"`
}

// Mode is an ordered mapping of attribute name to channel offset.
type Mode struct {
	Name     string    `json:"name"`
	Channels []Channel `json:"channels"`
}

// ChannelFor returns the channel for the named attribute.
func (m *Mode) ChannelFor(attribute string) (Channel, bool) {
	for _, ch := range m.Channels {
		if ch.Attribute == attribute {
			return ch, true
		}
	}
	return Channel{}, false
}

// HasAttribute reports whether the mode exposes the named attribute.
func (m *Mode) HasAttribute(attribute string) bool {
	_, ok := m.ChannelFor(attribute)
	return ok
}

// Attributes returns the mode's attribute names ordered by channel offset.
func (m *Mode) Attributes() []string {
	channels := make([]Channel, len(m.Channels))
	copy(channels, m.Channels)
	sort.SliceStable(channels, func(i, j int) bool {
		return channels[i].Offset < channels[j].Offset
	})
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.Attribute
	}
	return names
}

// Offsets returns the mode's attribute-to-offset mapping.
func (m *Mode) Offsets() map[string]int {
	offsets := make(map[string]int, len(m.Channels))
	for _, ch := range m.Channels {
		offsets[ch.Attribute] = ch.Offset
	}
	return offsets
}

// Profile is a parsed device profile, immutable after load.
type Profile struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
	Modes  []Mode `json:"modes"` // declaration order preserved
}

// Mode returns the named mode.
func (p *Profile) Mode(name string) (*Mode, bool) {
	for i := range p.Modes {
		if p.Modes[i].Name == name {
			return &p.Modes[i], true
		}
	}
	return nil, false
}

// FirstMode returns the first declared mode, the default when auto-matching.
func (p *Profile) FirstMode() (*Mode, bool) {
	if len(p.Modes) == 0 {
		return nil, false
	}
	return &p.Modes[0], true
}

// ModeNames returns the mode names in declaration order.
func (p *Profile) ModeNames() []string {
	names := make([]string, len(p.Modes))
	for i, m := range p.Modes {
		names[i] = m.Name
	}
	return names
}
