// Package tournament holds the identity, teams, venues and rules of a single
// tournament, and answers questions about them that the fixture generator
// and optimizer share.
package tournament

import (
	"errors"
	"fmt"
	"strings"

	"github.com/derekprior/fixtures/internal/config"
)

// ErrUnknownFormat is returned for tournament formats with no generator.
var ErrUnknownFormat = errors.New("unknown tournament format")

// Tournament is built once per tournament context from its config.
type Tournament struct {
	cfg      *config.Config
	teams    map[string]config.Team
	stadiums map[string]config.Stadium
	derbies  map[pairKey]bool
}

type pairKey struct {
	a, b string
}

func normalizePair(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// New builds a Tournament from a validated config.
func New(cfg *config.Config) (*Tournament, error) {
	if len(cfg.Teams) < 2 {
		return nil, fmt.Errorf("tournament %q needs at least two teams, has %d", cfg.Tournament.ID, len(cfg.Teams))
	}
	if cfg.Tournament.Format != "" && cfg.Tournament.Format != config.FormatRoundRobin {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Tournament.Format)
	}

	t := &Tournament{
		cfg:      cfg,
		teams:    make(map[string]config.Team, len(cfg.Teams)),
		stadiums: make(map[string]config.Stadium, len(cfg.Stadiums)),
		derbies:  make(map[pairKey]bool),
	}
	for _, team := range cfg.Teams {
		t.teams[team.ID] = team
	}
	for _, s := range cfg.Stadiums {
		t.stadiums[s.ID] = s
	}
	for _, pair := range cfg.Tournament.Derbies {
		if len(pair) == 2 {
			t.derbies[normalizePair(pair[0], pair[1])] = true
		}
	}
	return t, nil
}

func (t *Tournament) ID() string             { return t.cfg.Tournament.ID }
func (t *Tournament) Name() string           { return t.cfg.Tournament.Name }
func (t *Tournament) Config() *config.Config { return t.cfg }
func (t *Tournament) Rules() config.Rules    { return t.cfg.Rules }

// Legs returns how many times each pair of teams meets.
func (t *Tournament) Legs() int {
	if t.cfg.Tournament.Legs < 1 {
		return 1
	}
	return t.cfg.Tournament.Legs
}

// Teams returns teams in configured order.
func (t *Tournament) Teams() []config.Team {
	return t.cfg.Teams
}

// TeamIDs returns team ids in configured order.
func (t *Tournament) TeamIDs() []string {
	return t.cfg.TeamIDs()
}

func (t *Tournament) Team(id string) (config.Team, bool) {
	team, ok := t.teams[id]
	return team, ok
}

func (t *Tournament) Stadiums() []config.Stadium {
	return t.cfg.Stadiums
}

func (t *Tournament) Stadium(id string) (config.Stadium, bool) {
	s, ok := t.stadiums[id]
	return s, ok
}

// ExpectedMatches returns Legs × N × (N−1) / 2.
func (t *Tournament) ExpectedMatches() int {
	n := len(t.cfg.Teams)
	return t.Legs() * n * (n - 1) / 2
}

// IsDerby reports whether two teams are local rivals: listed as a derby,
// or sharing a county or city.
func (t *Tournament) IsDerby(a, b string) bool {
	if a == b {
		return false
	}
	if t.derbies[normalizePair(a, b)] {
		return true
	}
	ta, okA := t.teams[a]
	tb, okB := t.teams[b]
	if !okA || !okB {
		return false
	}
	if sameNonEmpty(ta.County, tb.County) {
		return true
	}
	return sameNonEmpty(ta.City, tb.City)
}

func sameNonEmpty(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
