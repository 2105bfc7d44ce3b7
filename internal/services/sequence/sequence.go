// Package sequence assigns console sequence numbers to resolved fixture
// attributes. Numbering is deterministic over the input order so a
// re-export reproduces the same numbers.
package sequence

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/attraddr/attraddr-go/internal/fixture"
)

// Config controls sequence numbering.
type Config struct {
	// StartNumber is the number assigned to the first pair.
	StartNumber int `json:"startNumber" validate:"gte=1"`

	// Interval is the step between consecutive numbers.
	Interval int `json:"interval" validate:"gte=1"`

	// AddBreaks inserts a gap when numbering crosses a fixture boundary.
	AddBreaks bool `json:"addBreaks"`

	// BreakSequences is the size of that gap, added on top of the
	// regular interval step.
	BreakSequences int `json:"breakSequences" validate:"gte=1"`
}

// DefaultConfig matches the console-side conventions operators expect.
func DefaultConfig() Config {
	return Config{
		StartNumber:    1001,
		Interval:       1,
		AddBreaks:      false,
		BreakSequences: 5,
	}
}

var validate = validator.New()

// Validate checks config bounds.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid sequence config: %w", err)
	}
	return nil
}

// Pair is one (fixture, attribute) numbering target. Pairs for the same
// fixture must be contiguous in the input for break detection to work.
type Pair struct {
	Fixture   *fixture.Fixture
	Attribute string
}

// Assign numbers every pair in order, writing each number into the
// fixture's Sequences map, and returns the assigned count. A break, when
// enabled, is applied whenever the fixture ID changes between consecutive
// pairs.
func Assign(pairs []Pair, cfg Config) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	current := cfg.StartNumber
	assigned := 0
	for i, p := range pairs {
		if i > 0 && cfg.AddBreaks && p.Fixture.FixtureID != pairs[i-1].Fixture.FixtureID {
			current += cfg.BreakSequences
		}
		if p.Fixture.Sequences == nil {
			p.Fixture.Sequences = make(map[string]int)
		}
		p.Fixture.Sequences[p.Attribute] = current
		current += cfg.Interval
		assigned++
	}
	return assigned, nil
}

// Pairs expands fixtures into numbering pairs: for each selected, matched
// fixture in order, one pair per requested attribute present in its
// resolved addresses. Deselected and unmatched fixtures contribute nothing
// and consume no numbers.
func Pairs(fixtures []*fixture.Fixture, attributes []string) []Pair {
	var out []Pair
	for _, f := range fixtures {
		if !f.Selected || !f.Matched {
			continue
		}
		for _, attr := range attributes {
			if _, ok := f.Addresses[attr]; ok {
				out = append(out, Pair{Fixture: f, Attribute: attr})
			}
		}
	}
	return out
}
