package fixture

import (
	"github.com/derekprior/fixtures/internal/tournament"
)

// Generator generates fixtures for one tournament and remembers the last
// set of rounds so they can be validated afterwards.
type Generator struct {
	t      *tournament.Tournament
	opts   Options
	rounds []Round
}

func NewGenerator(t *tournament.Tournament, opts Options) *Generator {
	return &Generator{t: t, opts: opts}
}

// GenerateRoundRobin builds the full round-robin structure.
func (g *Generator) GenerateRoundRobin() ([]Round, error) {
	strat, err := Get(g.t.Config().Tournament.Format)
	if err != nil {
		return nil, err
	}
	rounds, err := strat.Generate(g.t, g.opts)
	if err != nil {
		return nil, err
	}
	g.rounds = rounds
	return rounds, nil
}

// ValidateFixtures checks the most recently generated rounds.
func (g *Generator) ValidateFixtures() Validation {
	if g.rounds == nil {
		return Validation{
			Errors:   []string{"no fixtures have been generated"},
			Warnings: []string{},
		}
	}
	return Validate(g.t, g.rounds)
}

// Rounds returns the most recently generated rounds.
func (g *Generator) Rounds() []Round {
	return g.rounds
}
