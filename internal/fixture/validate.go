package fixture

import (
	"fmt"
	"sort"

	"github.com/derekprior/fixtures/internal/tournament"
)

// Validation is the outcome of checking generated rounds. Errors break the
// round-robin structure; warnings are worth a look but do not.
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// breakRun is the number of consecutive home (or away) matches that earns
// a warning.
const breakRun = 3

type pair struct {
	a, b string
}

func normalizePair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// Validate checks rounds against the round-robin invariants of a tournament.
func Validate(t *tournament.Tournament, rounds []Round) Validation {
	v := Validation{Errors: []string{}, Warnings: []string{}}

	teams := t.TeamIDs()
	played := make(map[string]int)
	home := make(map[string]int)
	away := make(map[string]int)
	meetings := make(map[pair]int)

	for _, r := range rounds {
		inRound := make(map[string]bool)
		pairsInRound := make(map[pair]bool)
		for _, m := range r.Matches {
			if m.Home == m.Away {
				v.Errors = append(v.Errors, fmt.Sprintf("round %d: %s plays itself", r.Number, m.Home))
				continue
			}
			unknown := false
			for _, id := range []string{m.Home, m.Away} {
				if _, ok := t.Team(id); !ok {
					v.Errors = append(v.Errors, fmt.Sprintf("round %d: unknown team %q", r.Number, id))
					unknown = true
				}
			}
			if unknown {
				continue
			}

			pk := normalizePair(m.Home, m.Away)
			if pairsInRound[pk] {
				v.Errors = append(v.Errors, fmt.Sprintf("round %d: %s vs %s appears twice", r.Number, pk.a, pk.b))
			}
			pairsInRound[pk] = true

			for _, id := range []string{m.Home, m.Away} {
				if inRound[id] {
					v.Errors = append(v.Errors, fmt.Sprintf("round %d: %s plays more than once", r.Number, id))
				}
				inRound[id] = true
				played[id]++
			}
			home[m.Home]++
			away[m.Away]++
			meetings[pk]++
		}
	}

	want := t.Legs() * (len(teams) - 1)
	for _, id := range teams {
		if played[id] != want {
			v.Errors = append(v.Errors, fmt.Sprintf("%s plays %d matches, want %d", id, played[id], want))
		}
	}

	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			pk := normalizePair(teams[i], teams[j])
			if n := meetings[pk]; n != t.Legs() {
				v.Errors = append(v.Errors, fmt.Sprintf("%s vs %s meet %d times, want %d", pk.a, pk.b, n, t.Legs()))
			}
		}
	}

	if total := Count(rounds); total != t.ExpectedMatches() {
		v.Errors = append(v.Errors, fmt.Sprintf("%d matches generated, want %d", total, t.ExpectedMatches()))
	}

	for _, id := range teams {
		diff := home[id] - away[id]
		if diff > 1 || diff < -1 {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s home/away imbalance: %d home, %d away", id, home[id], away[id]))
		}
	}

	v.Warnings = append(v.Warnings, derbyRunWarnings(teams, rounds)...)
	v.Warnings = append(v.Warnings, breakWarnings(teams, rounds)...)

	v.Valid = len(v.Errors) == 0
	return v
}

// derbyRunWarnings flags teams playing derbies in back-to-back rounds.
func derbyRunWarnings(teams []string, rounds []Round) []string {
	derbyRounds := make(map[string][]int)
	for _, r := range rounds {
		for _, m := range r.Matches {
			if m.Derby {
				derbyRounds[m.Home] = append(derbyRounds[m.Home], r.Number)
				derbyRounds[m.Away] = append(derbyRounds[m.Away], r.Number)
			}
		}
	}

	var warnings []string
	for _, id := range teams {
		rs := derbyRounds[id]
		sort.Ints(rs)
		for i := 1; i < len(rs); i++ {
			if rs[i] == rs[i-1]+1 {
				warnings = append(warnings, fmt.Sprintf("%s plays derbies in consecutive rounds %d and %d", id, rs[i-1], rs[i]))
			}
		}
	}
	return warnings
}

// breakWarnings flags runs of breakRun or more home (or away) matches.
func breakWarnings(teams []string, rounds []Round) []string {
	venue := make(map[string][]bool) // team -> home? in round order
	ordered := make([]Round, len(rounds))
	copy(ordered, rounds)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })
	for _, r := range ordered {
		for _, m := range r.Matches {
			venue[m.Home] = append(venue[m.Home], true)
			venue[m.Away] = append(venue[m.Away], false)
		}
	}

	var warnings []string
	for _, id := range teams {
		seq := venue[id]
		run := 1
		for i := 1; i <= len(seq); i++ {
			if i < len(seq) && seq[i] == seq[i-1] {
				run++
				continue
			}
			if run >= breakRun {
				where := "away"
				if seq[i-1] {
					where = "home"
				}
				warnings = append(warnings, fmt.Sprintf("%s plays %d consecutive %s matches", id, run, where))
			}
			run = 1
		}
	}
	return warnings
}
