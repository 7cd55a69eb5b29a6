package schedule

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/derekprior/fixtures/internal/fixture"
	"github.com/derekprior/fixtures/internal/tournament"
)

// ErrNoSlots is returned when the scheduling horizon has no usable slots.
var ErrNoSlots = errors.New("no available slots between start date and horizon")

// Conflict reasons, reported for matches that could not be placed.
const (
	ReasonSlotTaken        = "slot_taken"
	ReasonMaxMatchesPerDay = "max_matches_per_day"
	ReasonTeamSameDay      = "team_same_day"
	ReasonRestDays         = "rest_days"
	ReasonDerbySpacing     = "derby_spacing"
	ReasonCapacity         = "capacity"
	ReasonHorizon          = "horizon_exhausted"
)

// reasonOrder breaks ties when picking the dominant rejection reason.
var reasonOrder = []string{
	ReasonDerbySpacing,
	ReasonRestDays,
	ReasonCapacity,
	ReasonTeamSameDay,
	ReasonMaxMatchesPerDay,
	ReasonSlotTaken,
}

const (
	dayWeight         = 10.0
	awayGroundPenalty = 5.0
)

// Options control the optimizer.
type Options struct {
	RespectDerbies   bool
	ApplyConstraints bool
	Seed             int64
	Attempts         int
}

// OptionsFrom builds optimizer options from generation options.
func OptionsFrom(o fixture.Options, attempts int) Options {
	return Options{
		RespectDerbies:   o.RespectDerbies,
		ApplyConstraints: o.ApplyConstraints,
		Seed:             o.Seed,
		Attempts:         attempts,
	}
}

// Scheduled is a match with a date, time slot and stadium.
type Scheduled struct {
	fixture.Match
	Date         time.Time `json:"date"`
	Time         string    `json:"time"`
	End          string    `json:"end"`
	Stadium      string    `json:"stadium"`
	SlotPriority int       `json:"slot_priority"`
}

// Conflict explains why a match is unscheduled.
type Conflict struct {
	MatchID string `json:"match_id"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail"`
}

// TeamMetrics holds per-team schedule statistics.
type TeamMetrics struct {
	Matches     int `json:"matches"`
	Home        int `json:"home"`
	Away        int `json:"away"`
	Derbies     int `json:"derbies"`
	Unscheduled int `json:"unscheduled"`
}

// Result is the output of the optimizer. Every generated match is either
// in Scheduled or in Unscheduled.
type Result struct {
	Scheduled   []Scheduled             `json:"scheduled_matches"`
	Unscheduled []fixture.Match         `json:"unscheduled_matches"`
	Conflicts   []Conflict              `json:"conflicts"`
	Score       float64                 `json:"score"`
	Success     bool                    `json:"success"`
	Attempt     int                     `json:"attempt"`
	TeamMetrics map[string]*TeamMetrics `json:"team_metrics"`
}

// Optimize assigns a date, time slot and stadium to every match, round by
// round from start. Matches that fit nowhere are reported, never dropped.
// Several seeded attempts run concurrently and the best one is kept.
func Optimize(ctx context.Context, t *tournament.Tournament, rounds []fixture.Round, start time.Time, opts Options) (*Result, error) {
	total := fixture.Count(rounds)
	if total == 0 {
		return &Result{Score: 100, Success: true, TeamMetrics: buildMetrics(t, nil, nil)}, nil
	}

	slots := GenerateSlots(t.Config(), start, t.Config().Horizon())
	if len(slots) == 0 {
		return nil, fmt.Errorf("%w (%s to %s)", ErrNoSlots,
			start.Format("2006-01-02"), t.Config().Horizon().Format("2006-01-02"))
	}

	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	results := make([]*attemptResult, attempts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := 0; k < attempts; k++ {
		k := k
		g.Go(func() error {
			s := newScheduler(t, slots, start, opts)
			r, err := s.run(gctx, rounds, k)
			if err != nil {
				return err
			}
			results[k] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := results[0]
	for _, r := range results[1:] {
		if len(r.scheduled) > len(best.scheduled) ||
			(len(r.scheduled) == len(best.scheduled) && r.score > best.score) {
			best = r
		}
	}

	sort.SliceStable(best.scheduled, func(i, j int) bool {
		a, b := best.scheduled[i], best.scheduled[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Stadium < b.Stadium
	})

	return &Result{
		Scheduled:   best.scheduled,
		Unscheduled: best.unscheduled,
		Conflicts:   best.conflicts,
		Score:       best.score,
		Success:     len(best.unscheduled) == 0,
		Attempt:     best.attempt,
		TeamMetrics: buildMetrics(t, best.scheduled, best.unscheduled),
	}, nil
}

type attemptResult struct {
	attempt     int
	scheduled   []Scheduled
	unscheduled []fixture.Match
	conflicts   []Conflict
	score       float64
}

type slotKey struct {
	date    time.Time
	time    string
	stadium string
}

type scheduler struct {
	t     *tournament.Tournament
	slots []Slot
	start time.Time
	opts  Options

	maxPriority int

	used       map[slotKey]bool
	dayCount   map[time.Time]int
	teamDates  map[string][]time.Time // team -> sorted match dates
	derbyDates map[string][]time.Time // team -> sorted derby dates
}

func newScheduler(t *tournament.Tournament, slots []Slot, start time.Time, opts Options) *scheduler {
	s := &scheduler{
		t:          t,
		slots:      slots,
		start:      start,
		opts:       opts,
		used:       make(map[slotKey]bool),
		dayCount:   make(map[time.Time]int),
		teamDates:  make(map[string][]time.Time),
		derbyDates: make(map[string][]time.Time),
	}
	for _, slot := range slots {
		if slot.Priority > s.maxPriority {
			s.maxPriority = slot.Priority
		}
	}
	return s
}

func (s *scheduler) run(ctx context.Context, rounds []fixture.Round, attempt int) (*attemptResult, error) {
	rng := rand.New(rand.NewSource(s.opts.Seed + int64(attempt)))
	res := &attemptResult{attempt: attempt}

	floor := s.start
	for _, round := range rounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches := make([]fixture.Match, len(round.Matches))
		copy(matches, round.Matches)
		if attempt > 0 {
			rng.Shuffle(len(matches), func(i, j int) {
				matches[i], matches[j] = matches[j], matches[i]
			})
		}
		// High-profile matches pick their slots first.
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].BroadcastPriority > matches[j].BroadcastPriority
		})

		var roundLast time.Time
		for _, m := range matches {
			slot, reason, ok := s.bestSlot(m, floor)
			if !ok {
				res.unscheduled = append(res.unscheduled, m)
				res.conflicts = append(res.conflicts, Conflict{
					MatchID: m.ID,
					Reason:  reason,
					Detail:  conflictDetail(m, reason),
				})
				continue
			}
			s.assign(m, slot)
			res.scheduled = append(res.scheduled, Scheduled{
				Match:        m,
				Date:         slot.Date,
				Time:         slot.Time,
				End:          slot.End,
				Stadium:      slot.Stadium,
				SlotPriority: slot.Priority,
			})
			if slot.Date.After(roundLast) {
				roundLast = slot.Date
			}
		}

		if s.t.Rules().Sequential() && !roundLast.IsZero() {
			floor = roundLast.AddDate(0, 0, 1)
		}
	}

	res.score = s.qualityScore(res, fixture.Count(rounds))
	return res, nil
}

// bestSlot returns the lowest-scoring feasible slot on or after floor. When
// none exists it returns the most common rejection reason.
func (s *scheduler) bestSlot(m fixture.Match, floor time.Time) (Slot, string, bool) {
	first := sort.Search(len(s.slots), func(i int) bool {
		return !s.slots[i].Date.Before(floor)
	})
	if first == len(s.slots) {
		return Slot{}, ReasonHorizon, false
	}

	bonusCap := float64(s.maxPriority * fixture.PriorityDerby)
	rejections := make(map[string]int)
	bestIdx := -1
	bestScore := math.MaxFloat64

	for i := first; i < len(s.slots); i++ {
		slot := s.slots[i]
		days := slot.Date.Sub(floor).Hours() / 24
		// No later slot can beat the current best.
		if bestIdx >= 0 && days*dayWeight-bonusCap > bestScore {
			break
		}
		if reason, ok := s.hardConstraintCheck(m, slot); !ok {
			rejections[reason]++
			continue
		}
		score := s.scoreSlot(m, slot, floor)
		if score < bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return Slot{}, dominantReason(rejections), false
	}
	return s.slots[bestIdx], "", true
}

func dominantReason(rejections map[string]int) string {
	best, count := ReasonHorizon, 0
	for _, r := range reasonOrder {
		if rejections[r] > count {
			best, count = r, rejections[r]
		}
	}
	return best
}

func (s *scheduler) hardConstraintCheck(m fixture.Match, slot Slot) (string, bool) {
	rules := s.t.Rules()

	if s.used[slotKey{slot.Date, slot.Time, slot.Stadium}] {
		return ReasonSlotTaken, false
	}

	if rules.MaxMatchesPerDay > 0 && s.dayCount[slot.Date] >= rules.MaxMatchesPerDay {
		return ReasonMaxMatchesPerDay, false
	}

	for _, team := range []string{m.Home, m.Away} {
		for _, d := range s.teamDates[team] {
			if d.Equal(slot.Date) {
				return ReasonTeamSameDay, false
			}
		}
	}

	if s.opts.RespectDerbies && m.Derby && rules.DerbyMinDays > 0 {
		for _, team := range []string{m.Home, m.Away} {
			if withinDays(s.derbyDates[team], slot.Date, rules.DerbyMinDays) {
				return ReasonDerbySpacing, false
			}
		}
	}

	if !s.opts.ApplyConstraints {
		return "", true
	}

	if rules.MinRestDays > 1 {
		for _, team := range []string{m.Home, m.Away} {
			if withinDays(s.teamDates[team], slot.Date, rules.MinRestDays) {
				return ReasonRestDays, false
			}
		}
	}

	if stadium, ok := s.t.Stadium(slot.Stadium); ok {
		if stadium.Capacity < rules.MinCapacity {
			return ReasonCapacity, false
		}
		if m.Derby && stadium.Capacity < rules.DerbyMinCapacity {
			return ReasonCapacity, false
		}
	}

	return "", true
}

// withinDays reports whether any date lies fewer than minDays from d.
func withinDays(dates []time.Time, d time.Time, minDays int) bool {
	for _, other := range dates {
		gap := math.Abs(d.Sub(other).Hours() / 24)
		if gap < float64(minDays) {
			return true
		}
	}
	return false
}

// scoreSlot returns a lower score for more desirable slots: earlier dates,
// and high-priority slots for high-profile matches.
func (s *scheduler) scoreSlot(m fixture.Match, slot Slot, floor time.Time) float64 {
	score := slot.Date.Sub(floor).Hours() / 24 * dayWeight
	score -= float64(slot.Priority * m.BroadcastPriority)

	if home, ok := s.t.Team(m.Home); ok && home.HomeStadium != "" && home.HomeStadium != slot.Stadium {
		score += awayGroundPenalty
	}
	return score
}

func (s *scheduler) assign(m fixture.Match, slot Slot) {
	s.used[slotKey{slot.Date, slot.Time, slot.Stadium}] = true
	s.dayCount[slot.Date]++
	s.teamDates[m.Home] = insertSorted(s.teamDates[m.Home], slot.Date)
	s.teamDates[m.Away] = insertSorted(s.teamDates[m.Away], slot.Date)
	if m.Derby {
		s.derbyDates[m.Home] = insertSorted(s.derbyDates[m.Home], slot.Date)
		s.derbyDates[m.Away] = insertSorted(s.derbyDates[m.Away], slot.Date)
	}
}

// qualityScore rates an attempt from 0 to 100: full scheduling, use of
// high-priority slots by high-profile matches, and few conflicts.
func (s *scheduler) qualityScore(res *attemptResult, total int) float64 {
	if total == 0 {
		return 100
	}

	utilization := 1.0
	if s.maxPriority > 0 && len(res.scheduled) > 0 {
		var got, possible float64
		for _, sm := range res.scheduled {
			got += float64(sm.SlotPriority * sm.BroadcastPriority)
			possible += float64(s.maxPriority * sm.BroadcastPriority)
		}
		utilization = got / possible
	}
	if len(res.scheduled) == 0 {
		utilization = 0
	}

	scheduled := float64(len(res.scheduled)) / float64(total)
	satisfied := 1 - float64(len(res.conflicts))/float64(total)
	return 60*scheduled + 25*utilization + 15*satisfied
}

func conflictDetail(m fixture.Match, reason string) string {
	switch reason {
	case ReasonHorizon:
		return fmt.Sprintf("%s vs %s (round %d): no slots left before the end of the scheduling window", m.Home, m.Away, m.Round)
	case ReasonDerbySpacing:
		return fmt.Sprintf("%s vs %s (round %d): every remaining slot is too close to another derby", m.Home, m.Away, m.Round)
	case ReasonRestDays:
		return fmt.Sprintf("%s vs %s (round %d): every remaining slot breaks minimum rest days", m.Home, m.Away, m.Round)
	case ReasonCapacity:
		return fmt.Sprintf("%s vs %s (round %d): no remaining stadium is large enough", m.Home, m.Away, m.Round)
	default:
		return fmt.Sprintf("%s vs %s (round %d): no feasible slot (%s)", m.Home, m.Away, m.Round, reason)
	}
}

func buildMetrics(t *tournament.Tournament, scheduled []Scheduled, unscheduled []fixture.Match) map[string]*TeamMetrics {
	metrics := make(map[string]*TeamMetrics)
	for _, id := range t.TeamIDs() {
		metrics[id] = &TeamMetrics{}
	}
	for _, sm := range scheduled {
		if h, ok := metrics[sm.Home]; ok {
			h.Matches++
			h.Home++
			if sm.Derby {
				h.Derbies++
			}
		}
		if a, ok := metrics[sm.Away]; ok {
			a.Matches++
			a.Away++
			if sm.Derby {
				a.Derbies++
			}
		}
	}
	for _, m := range unscheduled {
		for _, id := range []string{m.Home, m.Away} {
			if tm, ok := metrics[id]; ok {
				tm.Unscheduled++
			}
		}
	}
	return metrics
}

func insertSorted(dates []time.Time, d time.Time) []time.Time {
	i := 0
	for i < len(dates) && dates[i].Before(d) {
		i++
	}
	dates = append(dates, time.Time{})
	copy(dates[i+1:], dates[i:])
	dates[i] = d
	return dates
}
