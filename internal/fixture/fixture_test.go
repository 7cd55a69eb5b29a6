package fixture

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/derekprior/fixtures/internal/config"
	"github.com/derekprior/fixtures/internal/tournament"
)

func testTournament(t *testing.T, n, legs int) *tournament.Tournament {
	t.Helper()
	cfg := &config.Config{
		Tournament: config.Tournament{
			ID:        "t",
			Format:    config.FormatRoundRobin,
			Legs:      legs,
			StartDate: config.Date{Time: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		},
		Stadiums: []config.Stadium{{ID: "s1"}},
	}
	for i := 1; i <= n; i++ {
		cfg.Teams = append(cfg.Teams, config.Team{ID: fmt.Sprintf("T%d", i)})
	}
	tr, err := tournament.New(cfg)
	if err != nil {
		t.Fatalf("tournament.New() error: %v", err)
	}
	return tr
}

func generate(t *testing.T, tr *tournament.Tournament, opts Options) []Round {
	t.Helper()
	rounds, err := (&RoundRobin{}).Generate(tr, opts)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	return rounds
}

func TestRoundRobinFourTeams(t *testing.T) {
	tr := testTournament(t, 4, 1)
	rounds := generate(t, tr, Options{BalanceHomeAway: true})

	t.Run("6 matches in 3 rounds of 2", func(t *testing.T) {
		if len(rounds) != 3 {
			t.Fatalf("rounds = %d, want 3", len(rounds))
		}
		for _, r := range rounds {
			if len(r.Matches) != 2 {
				t.Errorf("round %d has %d matches, want 2", r.Number, len(r.Matches))
			}
		}
		if Count(rounds) != 6 {
			t.Errorf("matches = %d, want 6", Count(rounds))
		}
	})

	t.Run("no repeated pairing", func(t *testing.T) {
		seen := make(map[pair]bool)
		for _, m := range All(rounds) {
			pk := normalizePair(m.Home, m.Away)
			if seen[pk] {
				t.Errorf("%s vs %s repeated", pk.a, pk.b)
			}
			seen[pk] = true
		}
	})

	t.Run("round numbers and ids", func(t *testing.T) {
		ids := make(map[string]bool)
		for i, r := range rounds {
			if r.Number != i+1 || r.Leg != 1 {
				t.Errorf("round %d: number=%d leg=%d", i, r.Number, r.Leg)
			}
			for _, m := range r.Matches {
				if m.Round != r.Number {
					t.Errorf("match %s round = %d, want %d", m.ID, m.Round, r.Number)
				}
				if ids[m.ID] {
					t.Errorf("duplicate id %s", m.ID)
				}
				ids[m.ID] = true
			}
		}
	})
}

func TestRoundRobinMatchCount(t *testing.T) {
	for n := 2; n <= 9; n++ {
		for legs := 1; legs <= 3; legs++ {
			t.Run(fmt.Sprintf("%d teams %d legs", n, legs), func(t *testing.T) {
				tr := testTournament(t, n, legs)
				rounds := generate(t, tr, Options{})

				want := legs * n * (n - 1) / 2
				if got := Count(rounds); got != want {
					t.Errorf("matches = %d, want %d", got, want)
				}

				perLeg := n - 1
				if n%2 == 1 {
					perLeg = n
				}
				if len(rounds) != perLeg*legs {
					t.Errorf("rounds = %d, want %d", len(rounds), perLeg*legs)
				}
				for _, r := range rounds {
					if len(r.Matches) != n/2 {
						t.Errorf("round %d has %d matches, want %d", r.Number, len(r.Matches), n/2)
					}
				}
			})
		}
	}
}

func TestRoundRobinNoTeamTwiceInRound(t *testing.T) {
	tr := testTournament(t, 7, 2)
	rounds := generate(t, tr, Options{RandomizeHomeAway: true, Seed: 11})
	for _, r := range rounds {
		seen := make(map[string]bool)
		for _, m := range r.Matches {
			if m.Home == m.Away {
				t.Errorf("round %d: %s plays itself", r.Number, m.Home)
			}
			for _, id := range []string{m.Home, m.Away} {
				if seen[id] {
					t.Errorf("round %d: %s plays twice", r.Number, id)
				}
				seen[id] = true
			}
		}
	}
}

func TestRoundRobinHomeAwayBalance(t *testing.T) {
	for n := 2; n <= 10; n++ {
		for legs := 1; legs <= 3; legs++ {
			for _, randomize := range []bool{false, true} {
				name := fmt.Sprintf("%d teams %d legs randomize=%v", n, legs, randomize)
				t.Run(name, func(t *testing.T) {
					tr := testTournament(t, n, legs)
					rounds := generate(t, tr, Options{BalanceHomeAway: true, RandomizeHomeAway: randomize, Seed: int64(n)})
					home := make(map[string]int)
					away := make(map[string]int)
					for _, m := range All(rounds) {
						home[m.Home]++
						away[m.Away]++
					}
					for _, id := range tr.TeamIDs() {
						diff := home[id] - away[id]
						if diff > 1 || diff < -1 {
							t.Errorf("%s: %d home, %d away", id, home[id], away[id])
						}
					}
				})
			}
		}
	}
}

func TestRoundRobinSecondLegReversed(t *testing.T) {
	tr := testTournament(t, 6, 2)
	rounds := generate(t, tr, Options{BalanceHomeAway: true})
	perLeg := 5
	if len(rounds) != 2*perLeg {
		t.Fatalf("rounds = %d, want %d", len(rounds), 2*perLeg)
	}
	for r := 0; r < perLeg; r++ {
		first, second := rounds[r], rounds[r+perLeg]
		if second.Leg != 2 {
			t.Errorf("round %d leg = %d, want 2", second.Number, second.Leg)
		}
		for i, m := range first.Matches {
			back := second.Matches[i]
			if back.Home != m.Away || back.Away != m.Home {
				t.Errorf("round %d: %s v %s not reversed as %s v %s", second.Number, m.Home, m.Away, back.Home, back.Away)
			}
		}
	}
}

func TestRoundRobinDeterministic(t *testing.T) {
	tr := testTournament(t, 8, 2)
	opts := Options{RandomizeHomeAway: true, Seed: 99}
	a := generate(t, tr, opts)
	b := generate(t, tr, opts)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different fixtures")
	}
}

func TestRoundRobinDerbiesAndPriority(t *testing.T) {
	cfg := &config.Config{
		Tournament: config.Tournament{
			ID:        "t",
			Legs:      1,
			StartDate: config.Date{Time: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
			Derbies:   [][]string{{"A", "B"}},
		},
		Teams: []config.Team{
			{ID: "A"}, {ID: "B"}, {ID: "C", County: "Kent"}, {ID: "D", County: "Kent"},
		},
		Stadiums: []config.Stadium{{ID: "s1"}},
	}
	tr, err := tournament.New(cfg)
	if err != nil {
		t.Fatalf("tournament.New() error: %v", err)
	}
	rounds := generate(t, tr, Options{})

	derbies := 0
	for _, r := range rounds {
		for _, m := range r.Matches {
			pk := normalizePair(m.Home, m.Away)
			isDerby := pk == (pair{"A", "B"}) || pk == (pair{"C", "D"})
			if m.Derby != isDerby {
				t.Errorf("%s: derby = %v, want %v", m.ID, m.Derby, isDerby)
			}
			switch {
			case m.Derby:
				derbies++
				if m.BroadcastPriority != PriorityDerby {
					t.Errorf("%s priority = %d, want %d", m.ID, m.BroadcastPriority, PriorityDerby)
				}
			case r.Number == len(rounds):
				if m.BroadcastPriority != PriorityRunIn {
					t.Errorf("%s priority = %d, want %d", m.ID, m.BroadcastPriority, PriorityRunIn)
				}
			default:
				if m.BroadcastPriority != PriorityNormal {
					t.Errorf("%s priority = %d, want %d", m.ID, m.BroadcastPriority, PriorityNormal)
				}
			}
		}
	}
	if derbies != 2 {
		t.Errorf("derbies = %d, want 2", derbies)
	}
}

func TestGet(t *testing.T) {
	if _, err := Get(config.FormatRoundRobin); err != nil {
		t.Errorf("Get(round_robin) error: %v", err)
	}
	_, err := Get("knockout")
	if !errors.Is(err, tournament.ErrUnknownFormat) {
		t.Errorf("Get(knockout) error = %v, want ErrUnknownFormat", err)
	}
}

func TestGenerator(t *testing.T) {
	tr := testTournament(t, 5, 2)
	g := NewGenerator(tr, Options{BalanceHomeAway: true})

	t.Run("validate before generate", func(t *testing.T) {
		v := g.ValidateFixtures()
		if v.Valid || len(v.Errors) == 0 {
			t.Errorf("expected invalid result, got %+v", v)
		}
	})

	t.Run("generate then validate", func(t *testing.T) {
		rounds, err := g.GenerateRoundRobin()
		if err != nil {
			t.Fatalf("GenerateRoundRobin() error: %v", err)
		}
		if Count(rounds) != 20 {
			t.Errorf("matches = %d, want 20", Count(rounds))
		}
		v := g.ValidateFixtures()
		if !v.Valid {
			t.Errorf("generated fixtures invalid: %v", v.Errors)
		}
		if len(g.Rounds()) != len(rounds) {
			t.Error("Rounds() does not return the generated rounds")
		}
	})
}
