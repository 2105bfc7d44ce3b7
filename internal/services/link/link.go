// Package link groups fixtures that share a fixture ID and resolves which
// fixture is the primary of each group. Secondaries inherit the primary's
// documentation identity on export.
package link

import (
	"sort"

	"github.com/attraddr/attraddr-go/internal/fixture"
)

// Group is one linked set of fixtures sharing a fixture ID.
type Group struct {
	FixtureID int                `json:"fixtureId"`
	Primary   *fixture.Fixture   `json:"primary,omitempty"`
	Members   []*fixture.Fixture `json:"members"`
}

// Result holds the linking outcome across a fixture set.
type Result struct {
	Groups []Group `json:"groups"`

	// NoPrimary lists groups containing a secondary but no primary.
	// This is reported to the user, never treated as an error.
	NoPrimary []Group `json:"noPrimary,omitempty"`
}

// ResolveLinks groups fixtures by fixture ID and identifies each group's
// primary. Fixtures without a valid fixture ID are not linkable and are
// skipped. Groups come back ordered by fixture ID.
func ResolveLinks(fixtures []*fixture.Fixture) Result {
	byID := make(map[int][]*fixture.Fixture)
	for _, f := range fixtures {
		if !f.Linkable() {
			continue
		}
		byID[f.FixtureID] = append(byID[f.FixtureID], f)
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var res Result
	for _, id := range ids {
		g := Group{FixtureID: id, Members: byID[id]}
		hasSecondary := false
		for _, f := range g.Members {
			switch f.Role {
			case fixture.RolePrimary:
				if g.Primary == nil {
					g.Primary = f
				}
			case fixture.RoleSecondary:
				hasSecondary = true
			}
		}
		res.Groups = append(res.Groups, g)
		if g.Primary == nil && hasSecondary {
			res.NoPrimary = append(res.NoPrimary, g)
		}
	}
	return res
}

// MasterFixtureID returns the fixture ID of the primary that f is linked
// to, or f's own fixture ID when f is the primary or no link applies.
func MasterFixtureID(f *fixture.Fixture, res Result) int {
	if f.Role != fixture.RoleSecondary {
		return f.FixtureID
	}
	for _, g := range res.Groups {
		if g.FixtureID == f.FixtureID {
			if g.Primary != nil {
				return g.Primary.FixtureID
			}
			break
		}
	}
	return f.FixtureID
}

// PrimaryCandidates returns fixtures eligible to become a primary, which
// is anything not already serving as a secondary.
func PrimaryCandidates(fixtures []*fixture.Fixture) []*fixture.Fixture {
	var out []*fixture.Fixture
	for _, f := range fixtures {
		if f.Role == fixture.RolePrimary || f.Role == fixture.RoleUnassigned {
			out = append(out, f)
		}
	}
	return out
}

// SecondaryCandidates returns fixtures eligible to become a secondary,
// which is anything not already serving as a primary.
func SecondaryCandidates(fixtures []*fixture.Fixture) []*fixture.Fixture {
	var out []*fixture.Fixture
	for _, f := range fixtures {
		if f.Role == fixture.RoleSecondary || f.Role == fixture.RoleUnassigned {
			out = append(out, f)
		}
	}
	return out
}

// Summary counts fixtures per role.
type Summary struct {
	Primaries   int `json:"primaries"`
	Secondaries int `json:"secondaries"`
	Unassigned  int `json:"unassigned"`
	Linked      int `json:"linked"`
	Orphaned    int `json:"orphaned"`
}

// Summarize reports role distribution and link health. Linked counts
// secondaries that resolved to a primary; Orphaned counts those that did
// not.
func Summarize(fixtures []*fixture.Fixture) Summary {
	var s Summary
	res := ResolveLinks(fixtures)
	orphanIDs := make(map[int]bool, len(res.NoPrimary))
	for _, g := range res.NoPrimary {
		orphanIDs[g.FixtureID] = true
	}
	for _, f := range fixtures {
		switch f.Role {
		case fixture.RolePrimary:
			s.Primaries++
		case fixture.RoleSecondary:
			s.Secondaries++
			if orphanIDs[f.FixtureID] {
				s.Orphaned++
			} else {
				s.Linked++
			}
		default:
			s.Unassigned++
		}
	}
	return s
}
