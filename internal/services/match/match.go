// Package match implements the fixture-type to profile matching engine.
// Matching operates per fixture-type group: applying a (profile, mode) pair
// marks every fixture of that type matched and attaches the mode's
// attribute offsets.
package match

import (
	"errors"
	"fmt"
	"strings"

	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/gdtf"
)

var (
	// ErrNoProfilesAvailable indicates the registry holds nothing to
	// match against. Recoverable: fixtures stay unmatched.
	ErrNoProfilesAvailable = errors.New("no profiles available")

	// ErrProfileNotFound indicates the requested profile is not in the
	// registry.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileModeNotFound indicates the requested mode does not exist
	// in the chosen profile, typically a stale saved match after a
	// profile reload. The group is left unmatched.
	ErrProfileModeNotFound = errors.New("profile mode not found")
)

// Preferences supplies saved (profile, mode) choices per fixture type,
// loaded from prior session state. Implemented by the settings store.
type Preferences interface {
	SavedMatch(fixtureType string) (profileName, modeName string, ok bool)
}

// Engine matches declared fixture-type strings against a profile registry.
type Engine struct {
	registry *gdtf.Registry
}

// NewEngine creates a matching engine over the given registry.
func NewEngine(registry *gdtf.Registry) *Engine {
	return &Engine{registry: registry}
}

// Candidates returns the profiles whose names match the fixture type by
// case-insensitive containment in either direction, in registry iteration
// order (embedded before external, each alphabetical).
func (e *Engine) Candidates(fixtureType string) []*gdtf.Profile {
	needle := strings.ToLower(strings.TrimSpace(fixtureType))
	if needle == "" {
		return nil
	}
	var out []*gdtf.Profile
	for _, p := range e.registry.Profiles() {
		name := strings.ToLower(p.Name)
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			out = append(out, p)
		}
	}
	return out
}

// AutoMatch picks a profile for the fixture type: exact name match first,
// then the first containment candidate in registry order. The tie-break is
// the documented first-match-wins heuristic; callers override per group
// through ApplyMatch when it picks wrong.
func (e *Engine) AutoMatch(fixtureType string) (*gdtf.Profile, error) {
	if e.registry.Len() == 0 {
		return nil, ErrNoProfilesAvailable
	}
	needle := strings.TrimSpace(fixtureType)
	for _, p := range e.registry.Profiles() {
		if strings.EqualFold(p.Name, needle) {
			return p, nil
		}
	}
	candidates := e.Candidates(fixtureType)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidate for type %q", ErrProfileNotFound, fixtureType)
	}
	return candidates[0], nil
}

// ApplyMatch applies a (profile, mode) pair to every fixture in the group
// sharing fixtureType. Roles and selection are untouched; derived address
// and sequence maps are invalidated so stale results are recomputed before
// export.
func (e *Engine) ApplyMatch(fixtures []*fixture.Fixture, fixtureType, profileName, modeName string) error {
	profile, ok := e.registry.Get(profileName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, profileName)
	}
	mode, ok := profile.Mode(modeName)
	if !ok {
		return fmt.Errorf("%w: profile %q has no mode %q", ErrProfileModeNotFound, profileName, modeName)
	}

	offsets := mode.Offsets()
	for _, f := range fixture.ByType(fixtures, fixtureType) {
		f.Matched = true
		f.ProfileName = profile.Name
		f.ModeName = mode.Name

		f.Attributes = make(map[string]int, len(offsets))
		for attr, offset := range offsets {
			f.Attributes[attr] = offset
		}

		f.ActivationGroups = nil
		for _, ch := range mode.Channels {
			if ch.ActivationGroup == "" {
				continue
			}
			if f.ActivationGroups == nil {
				f.ActivationGroups = make(map[string]string)
			}
			f.ActivationGroups[ch.Attribute] = ch.ActivationGroup
		}

		f.InvalidateDerived()
	}
	return nil
}

// AutoMatched reports what one auto-match pass accomplished, counted both
// in fixture-type groups and in individual fixtures.
type AutoMatched struct {
	Types    int `json:"matchedTypes"`
	Fixtures int `json:"matchedFixtures"`
}

// AutoMatchAll auto-matches every unmatched fixture-type group. Saved
// preferences win over the heuristic; groups with a stale saved mode fall
// back to auto-matching and are reported in the warnings.
func (e *Engine) AutoMatchAll(fixtures []*fixture.Fixture, prefs Preferences) (AutoMatched, []string) {
	var warnings []string
	var matched AutoMatched

	for _, fixtureType := range fixture.Types(fixtures) {
		group := fixture.ByType(fixtures, fixtureType)
		if allMatched(group) {
			continue
		}

		if prefs != nil {
			if profileName, modeName, ok := prefs.SavedMatch(fixtureType); ok {
				err := e.ApplyMatch(fixtures, fixtureType, profileName, modeName)
				if err == nil {
					matched.Types++
					matched.Fixtures += len(group)
					continue
				}
				warnings = append(warnings, fmt.Sprintf("saved match for %q is stale: %v", fixtureType, err))
			}
		}

		profile, err := e.AutoMatch(fixtureType)
		if err != nil {
			if !errors.Is(err, ErrProfileNotFound) {
				warnings = append(warnings, fmt.Sprintf("cannot match %q: %v", fixtureType, err))
			}
			continue
		}
		mode, ok := e.pickMode(profile, group)
		if !ok {
			continue
		}
		if err := e.ApplyMatch(fixtures, fixtureType, profile.Name, mode); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot match %q: %v", fixtureType, err))
			continue
		}
		matched.Types++
		matched.Fixtures += len(group)
	}

	return matched, warnings
}

// pickMode prefers a mode matching the group's declared mode hint, else the
// first declared mode.
func (e *Engine) pickMode(profile *gdtf.Profile, group []*fixture.Fixture) (string, bool) {
	for _, f := range group {
		if f.DeclaredMode == "" {
			continue
		}
		for _, name := range profile.ModeNames() {
			if strings.EqualFold(name, f.DeclaredMode) {
				return name, true
			}
		}
	}
	first, ok := profile.FirstMode()
	if !ok {
		return "", false
	}
	return first.Name, true
}

// Summary reports matching progress over a fixture set.
type Summary struct {
	Total     int     `json:"total"`
	Matched   int     `json:"matched"`
	Unmatched int     `json:"unmatched"`
	Selected  int     `json:"selected"`
	MatchRate float64 `json:"matchRate"`
}

// Summarize counts matched and selected fixtures.
func Summarize(fixtures []*fixture.Fixture) Summary {
	s := Summary{Total: len(fixtures)}
	for _, f := range fixtures {
		if f.Matched {
			s.Matched++
		}
		if f.Selected {
			s.Selected++
		}
	}
	s.Unmatched = s.Total - s.Matched
	if s.Total > 0 {
		s.MatchRate = float64(s.Matched) / float64(s.Total) * 100
	}
	return s
}

// Verify checks the matched invariant for one fixture against the registry:
// matched is true iff profile and mode are set and the mode exists in the
// named profile.
func Verify(f *fixture.Fixture, registry *gdtf.Registry) bool {
	if !f.Matched {
		return f.ProfileName == "" && f.ModeName == ""
	}
	if f.ProfileName == "" || f.ModeName == "" {
		return false
	}
	profile, ok := registry.Get(f.ProfileName)
	if !ok {
		return false
	}
	_, ok = profile.Mode(f.ModeName)
	return ok
}

func allMatched(group []*fixture.Fixture) bool {
	for _, f := range group {
		if !f.Matched {
			return false
		}
	}
	return true
}
