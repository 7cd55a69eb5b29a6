package fixture

import (
	"fmt"

	"github.com/derekprior/fixtures/internal/config"
	"github.com/derekprior/fixtures/internal/tournament"
)

// Broadcast priorities, highest first.
const (
	PriorityDerby  = 3
	PriorityRunIn  = 2
	PriorityNormal = 1
)

// Match is a pairing before any date or venue is assigned.
type Match struct {
	ID                string `json:"id"`
	Round             int    `json:"round"`
	Leg               int    `json:"leg"`
	Home              string `json:"home"`
	Away              string `json:"away"`
	Derby             bool   `json:"derby"`
	BroadcastPriority int    `json:"broadcast_priority"`
}

// Round is one matchday: every team appears at most once.
type Round struct {
	Number  int     `json:"number"`
	Leg     int     `json:"leg"`
	Matches []Match `json:"matches"`
}

// Options control how fixtures are generated and scheduled.
type Options struct {
	RandomizeHomeAway bool  `json:"randomize_home_away"`
	BalanceHomeAway   bool  `json:"balance_home_away"`
	RespectDerbies    bool  `json:"respect_derbies"`
	ApplyConstraints  bool  `json:"apply_constraints"`
	PreviewOnly       bool  `json:"preview_only"`
	Seed              int64 `json:"seed"`
}

// OptionsFromConfig copies the generation defaults from a config.
func OptionsFromConfig(o config.Options) Options {
	return Options{
		RandomizeHomeAway: o.RandomizeHomeAway,
		BalanceHomeAway:   o.BalanceHomeAway,
		RespectDerbies:    o.RespectDerbies,
		ApplyConstraints:  o.ApplyConstraints,
		PreviewOnly:       o.PreviewOnly,
		Seed:              o.Seed,
	}
}

// Strategy generates the rounds for a tournament format.
type Strategy interface {
	Generate(t *tournament.Tournament, opts Options) ([]Round, error)
}

// Get returns a Strategy by format name.
func Get(format string) (Strategy, error) {
	switch format {
	case config.FormatRoundRobin, "":
		return &RoundRobin{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", tournament.ErrUnknownFormat, format)
	}
}

// Count returns the number of matches across rounds.
func Count(rounds []Round) int {
	n := 0
	for _, r := range rounds {
		n += len(r.Matches)
	}
	return n
}

// All flattens rounds into their matches in round order.
func All(rounds []Round) []Match {
	matches := make([]Match, 0, Count(rounds))
	for _, r := range rounds {
		matches = append(matches, r.Matches...)
	}
	return matches
}

func matchID(round int, home, away string) string {
	return fmt.Sprintf("R%d-%s-%s", round, home, away)
}
