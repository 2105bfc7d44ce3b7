// Package address computes absolute DMX addresses for matched fixture
// attributes. Resolution is pure arithmetic over the fixture's patch
// position and the attribute's channel offset; it never mutates inputs
// except through the explicit batch entry point.
package address

import (
	"errors"
	"fmt"

	"github.com/attraddr/attraddr-go/internal/fixture"
)

// ErrUnresolved indicates an attribute address cannot be computed, either
// because the fixture is unmatched, unpatched, or the attribute is not in
// its mode.
var ErrUnresolved = errors.New("address unresolved")

// Resolved is a fully computed attribute address.
type Resolved struct {
	Absolute int `json:"absolute"`
	Universe int `json:"universe"`
	Channel  int `json:"channel"`
}

// Resolve computes the absolute address of one attribute on one fixture.
// absolute = (universe-1)*512 + channel + offset, with the offset
// zero-based. Addresses past channel 512 wrap into the next universe.
func Resolve(f *fixture.Fixture, attribute string) (Resolved, error) {
	if !f.Patched() {
		return Resolved{}, fmt.Errorf("%w: fixture %q has no patch address", ErrUnresolved, f.Name)
	}
	if !f.Matched {
		return Resolved{}, fmt.Errorf("%w: fixture %q is not matched", ErrUnresolved, f.Name)
	}
	offset, ok := f.Attributes[attribute]
	if !ok {
		return Resolved{}, fmt.Errorf("%w: fixture %q mode %q has no attribute %q",
			ErrUnresolved, f.Name, f.ModeName, attribute)
	}

	abs := f.BaseAddress() + offset
	universe, channel := fixture.SplitAddress(abs)
	return Resolved{Absolute: abs, Universe: universe, Channel: channel}, nil
}

// Failure records one fixture that could not be resolved during a batch.
type Failure struct {
	FixtureName string `json:"fixtureName"`
	Reason      string `json:"reason"`
}

// Summary reports a batch resolution outcome.
type Summary struct {
	Resolved   int       `json:"resolved"`
	Unresolved int       `json:"unresolved"`
	Failures   []Failure `json:"failures,omitempty"`
}

// ResolveAll resolves the requested attributes for every selected fixture,
// writing the derived address maps in place. Unselected fixtures are
// skipped. A selected but unmatched or unpatched fixture produces one
// failure entry; a matched fixture simply lacking one of the requested
// attributes is not a failure, the attribute is omitted.
func ResolveAll(fixtures []*fixture.Fixture, attributes []string) Summary {
	var s Summary
	for _, f := range fixtures {
		if !f.Selected {
			continue
		}
		if !f.Matched || !f.Patched() {
			s.Unresolved++
			reason := "not matched to a profile"
			if f.Matched {
				reason = "no patch address"
			}
			s.Failures = append(s.Failures, Failure{FixtureName: f.Name, Reason: reason})
			continue
		}

		f.Addresses = make(map[string]int)
		f.Universes = make(map[string]int)
		f.Channels = make(map[string]int)
		for _, attr := range attributes {
			r, err := Resolve(f, attr)
			if err != nil {
				continue
			}
			f.Addresses[attr] = r.Absolute
			f.Universes[attr] = r.Universe
			f.Channels[attr] = r.Channel
		}
		s.Resolved++
	}
	return s
}
