package fixture

import (
	"math/rand"

	"github.com/derekprior/fixtures/internal/tournament"
)

// RoundRobin pairs teams with the circle method: the first team stays put
// and the rest rotate one position per round. Even-numbered legs replay the
// first leg with home and away reversed.
type RoundRobin struct{}

type pairing struct {
	home, away int // indexes into the ordered team list
}

func (s *RoundRobin) Generate(t *tournament.Tournament, opts Options) ([]Round, error) {
	teams := t.TeamIDs()
	order := make([]string, len(teams))
	copy(order, teams)

	rng := rand.New(rand.NewSource(opts.Seed))
	if opts.RandomizeHomeAway {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	firstLeg := circleRounds(len(order))
	for r := range firstLeg {
		for i, p := range firstLeg[r] {
			switch {
			case opts.BalanceHomeAway:
				firstLeg[r][i] = balancedOrientation(p, len(order))
			case opts.RandomizeHomeAway && rng.Intn(2) == 1:
				firstLeg[r][i] = pairing{home: p.away, away: p.home}
			}
		}
	}

	perLeg := len(firstLeg)
	var rounds []Round
	for leg := 1; leg <= t.Legs(); leg++ {
		for r, pairs := range firstLeg {
			number := (leg-1)*perLeg + r + 1
			round := Round{Number: number, Leg: leg}
			for _, p := range pairs {
				home, away := order[p.home], order[p.away]
				if leg%2 == 0 {
					home, away = away, home
				}
				m := Match{
					ID:    matchID(number, home, away),
					Round: number,
					Leg:   leg,
					Home:  home,
					Away:  away,
					Derby: t.IsDerby(home, away),
				}
				m.BroadcastPriority = broadcastPriority(m, r == perLeg-1)
				round.Matches = append(round.Matches, m)
			}
			rounds = append(rounds, round)
		}
	}
	return rounds, nil
}

// circleRounds returns the pairings of a single round robin over n teams.
// For odd n a bye is added and pairings against it are left out.
func circleRounds(n int) [][]pairing {
	size := n
	if size%2 == 1 {
		size++
	}
	bye := -1
	if size != n {
		bye = n
	}

	pos := make([]int, size)
	for i := range pos {
		pos[i] = i
	}

	rounds := make([][]pairing, 0, size-1)
	for r := 0; r < size-1; r++ {
		var pairs []pairing
		for i := 0; i < size/2; i++ {
			a, b := pos[i], pos[size-1-i]
			if a == bye || b == bye {
				continue
			}
			// The fixed team alternates by round; others keep position order.
			if i == 0 && r%2 == 1 {
				a, b = b, a
			}
			pairs = append(pairs, pairing{home: a, away: b})
		}
		rounds = append(rounds, pairs)

		last := pos[size-1]
		copy(pos[2:], pos[1:size-1])
		pos[1] = last
	}
	return rounds
}

// balancedOrientation decides home and away so that over one leg every team
// has home and away counts differing by at most one. Among an odd number of
// teams k, i hosts j when (j−i) mod k falls in [1, (k−1)/2]; with an even
// team count the last team hosts the even-indexed teams.
func balancedOrientation(p pairing, n int) pairing {
	a, b := p.home, p.away
	k := n
	if n%2 == 0 {
		k = n - 1
		last := n - 1
		if a == last || b == last {
			other := a
			if a == last {
				other = b
			}
			if other%2 == 0 {
				return pairing{home: last, away: other}
			}
			return pairing{home: other, away: last}
		}
	}
	d := ((b-a)%k + k) % k
	if d >= 1 && d <= (k-1)/2 {
		return pairing{home: a, away: b}
	}
	return pairing{home: b, away: a}
}

func broadcastPriority(m Match, lastRoundOfLeg bool) int {
	switch {
	case m.Derby:
		return PriorityDerby
	case lastRoundOfLeg:
		return PriorityRunIn
	default:
		return PriorityNormal
	}
}
