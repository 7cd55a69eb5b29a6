package schedule

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/derekprior/fixtures/internal/config"
	"github.com/derekprior/fixtures/internal/fixture"
	"github.com/derekprior/fixtures/internal/tournament"
)

func schedulerTestConfig() *config.Config {
	end := date(2027, 5, 31)
	return &config.Config{
		Tournament: config.Tournament{
			ID:        "county",
			Legs:      2,
			StartDate: date(2026, 8, 1),
			EndDate:   &end,
			BlackoutDates: []config.BlackoutDate{
				{Date: date(2026, 12, 25), Reason: "Christmas"},
			},
			Derbies: [][]string{{"ROV", "UTD"}},
		},
		Teams: []config.Team{
			{ID: "ROV", HomeStadium: "park"},
			{ID: "UTD"},
			{ID: "ATH", County: "Kent"},
			{ID: "WAN", County: "Kent"},
			{ID: "CIT"},
			{ID: "TOW"},
		},
		Stadiums: []config.Stadium{
			{ID: "park", Capacity: 12000},
			{ID: "road", Capacity: 4000},
			{ID: "lane", Capacity: 2500},
		},
		TimeSlots: []config.TimeSlot{
			{Day: "saturday", Start: "15:00", End: "17:00", Priority: 5},
			{Day: "sunday", Start: "16:30", End: "18:30", Priority: 10},
			{Day: "wednesday", Start: "19:45", End: "21:45", Priority: 2},
		},
		Rules: config.Rules{
			MaxMatchesPerDay: 3,
			MinRestDays:      3,
			DerbyMinDays:     28,
			DerbyMinCapacity: 10000,
		},
		Options: config.Options{Attempts: 8},
	}
}

func buildRounds(t *testing.T, cfg *config.Config, opts fixture.Options) (*tournament.Tournament, []fixture.Round) {
	t.Helper()
	tr, err := tournament.New(cfg)
	if err != nil {
		t.Fatalf("tournament.New() error: %v", err)
	}
	rounds, err := (&fixture.RoundRobin{}).Generate(tr, opts)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	return tr, rounds
}

func TestOptimizeAllMatches(t *testing.T) {
	cfg := schedulerTestConfig()
	genOpts := fixture.Options{BalanceHomeAway: true, RespectDerbies: true, ApplyConstraints: true, Seed: 42}
	tr, rounds := buildRounds(t, cfg, genOpts)

	result, err := Optimize(context.Background(), tr, rounds, cfg.Tournament.StartDate.Time, OptionsFrom(genOpts, cfg.Options.Attempts))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}

	t.Run("all 30 matches scheduled", func(t *testing.T) {
		if len(result.Scheduled) != 30 {
			t.Errorf("scheduled %d matches, want 30", len(result.Scheduled))
		}
		if !result.Success || len(result.Unscheduled) != 0 || len(result.Conflicts) != 0 {
			t.Errorf("success=%v unscheduled=%d conflicts=%d", result.Success, len(result.Unscheduled), len(result.Conflicts))
		}
	})

	t.Run("no team plays twice in one day", func(t *testing.T) {
		type teamDay struct {
			team string
			date time.Time
		}
		seen := make(map[teamDay]int)
		for _, s := range result.Scheduled {
			seen[teamDay{s.Home, s.Date}]++
			seen[teamDay{s.Away, s.Date}]++
		}
		for td, count := range seen {
			if count > 1 {
				t.Errorf("%s plays %d matches on %s", td.team, count, td.date.Format("2006-01-02"))
			}
		}
	})

	t.Run("minimum rest days", func(t *testing.T) {
		for team, dates := range teamDates(result.Scheduled, false) {
			for i := 1; i < len(dates); i++ {
				if dates[i].Sub(dates[i-1]) < 3*24*time.Hour {
					t.Errorf("%s rests under 3 days: %s, %s", team, dates[i-1].Format("01/02"), dates[i].Format("01/02"))
				}
			}
		}
	})

	t.Run("derby spacing", func(t *testing.T) {
		for team, dates := range teamDates(result.Scheduled, true) {
			for i := 1; i < len(dates); i++ {
				if dates[i].Sub(dates[i-1]) < 28*24*time.Hour {
					t.Errorf("%s derbies too close: %s, %s", team, dates[i-1].Format("01/02"), dates[i].Format("01/02"))
				}
			}
		}
	})

	t.Run("derbies in large stadiums", func(t *testing.T) {
		for _, s := range result.Scheduled {
			if s.Derby && s.Stadium != "park" {
				t.Errorf("derby %s at %s, capacity too small", s.ID, s.Stadium)
			}
		}
	})

	t.Run("max matches per day and unique slots", func(t *testing.T) {
		perDay := make(map[time.Time]int)
		seen := make(map[slotKey]bool)
		for _, s := range result.Scheduled {
			perDay[s.Date]++
			k := slotKey{s.Date, s.Time, s.Stadium}
			if seen[k] {
				t.Errorf("slot %s %s %s used twice", s.Date.Format("01/02"), s.Time, s.Stadium)
			}
			seen[k] = true
		}
		for d, n := range perDay {
			if n > 3 {
				t.Errorf("%d matches on %s, max 3", n, d.Format("01/02"))
			}
		}
	})

	t.Run("rounds are played in order", func(t *testing.T) {
		first := make(map[int]time.Time)
		last := make(map[int]time.Time)
		for _, s := range result.Scheduled {
			if f, ok := first[s.Round]; !ok || s.Date.Before(f) {
				first[s.Round] = s.Date
			}
			if s.Date.After(last[s.Round]) {
				last[s.Round] = s.Date
			}
		}
		for r := 2; r <= len(rounds); r++ {
			if !first[r].After(last[r-1]) {
				t.Errorf("round %d starts %s before round %d ends %s",
					r, first[r].Format("01/02"), r-1, last[r-1].Format("01/02"))
			}
		}
	})

	t.Run("no matches on blackout dates", func(t *testing.T) {
		for _, s := range result.Scheduled {
			if s.Date.Equal(mustDate("2026-12-25")) {
				t.Errorf("%s scheduled on Christmas", s.ID)
			}
		}
	})

	t.Run("team metrics", func(t *testing.T) {
		for _, id := range tr.TeamIDs() {
			m := result.TeamMetrics[id]
			if m.Matches != 10 {
				t.Errorf("%s metrics matches = %d, want 10", id, m.Matches)
			}
			if m.Home-m.Away > 1 || m.Away-m.Home > 1 {
				t.Errorf("%s home %d away %d", id, m.Home, m.Away)
			}
		}
	})

	t.Run("score", func(t *testing.T) {
		if result.Score <= 60 || result.Score > 100 {
			t.Errorf("score = %.2f, want in (60, 100]", result.Score)
		}
	})
}

func TestOptimizeUnschedulable(t *testing.T) {
	cfg := schedulerTestConfig()
	end := date(2026, 8, 31)
	cfg.Tournament.EndDate = &end
	genOpts := fixture.Options{BalanceHomeAway: true, RespectDerbies: true, ApplyConstraints: true}
	tr, rounds := buildRounds(t, cfg, genOpts)

	result, err := Optimize(context.Background(), tr, rounds, cfg.Tournament.StartDate.Time, OptionsFrom(genOpts, 4))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}

	if result.Success {
		t.Fatal("expected partial result for a one-month window")
	}
	total := fixture.Count(rounds)
	if got := len(result.Scheduled) + len(result.Unscheduled); got != total {
		t.Errorf("scheduled + unscheduled = %d, want %d", got, total)
	}
	if len(result.Conflicts) != len(result.Unscheduled) {
		t.Errorf("conflicts = %d, unscheduled = %d", len(result.Conflicts), len(result.Unscheduled))
	}
	for _, c := range result.Conflicts {
		if c.MatchID == "" || c.Reason == "" || c.Detail == "" {
			t.Errorf("incomplete conflict %+v", c)
		}
	}
	if result.Score >= 100 {
		t.Errorf("score = %.2f, want below 100", result.Score)
	}
}

func TestOptimizeDerbyTakesPrimeSlot(t *testing.T) {
	end := date(2026, 9, 30)
	cfg := &config.Config{
		Tournament: config.Tournament{
			ID:        "t",
			Legs:      1,
			StartDate: date(2026, 8, 1), // Saturday
			EndDate:   &end,
			Derbies:   [][]string{{"A", "B"}},
		},
		Teams:    []config.Team{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}},
		Stadiums: []config.Stadium{{ID: "s1"}},
		TimeSlots: []config.TimeSlot{
			{Day: "saturday", Start: "15:00", End: "17:00", Priority: 1},
			{Day: "sunday", Start: "16:30", End: "18:30", Priority: 10},
		},
	}
	genOpts := fixture.Options{BalanceHomeAway: true}
	tr, rounds := buildRounds(t, cfg, genOpts)

	result, err := Optimize(context.Background(), tr, rounds, cfg.Tournament.StartDate.Time, OptionsFrom(genOpts, 1))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if !result.Success {
		t.Fatalf("conflicts: %+v", result.Conflicts)
	}
	for _, s := range result.Scheduled {
		if s.Derby {
			if s.Date.Weekday() != time.Sunday || s.SlotPriority != 10 {
				t.Errorf("derby on %s at %s, want the sunday prime slot", s.Date.Weekday(), s.Time)
			}
		}
	}
}

func TestOptimizeWithoutConstraints(t *testing.T) {
	cfg := schedulerTestConfig()
	cfg.Rules.MinRestDays = 60

	strict := fixture.Options{BalanceHomeAway: true, ApplyConstraints: true}
	tr, rounds := buildRounds(t, cfg, strict)
	res, err := Optimize(context.Background(), tr, rounds, cfg.Tournament.StartDate.Time, OptionsFrom(strict, 2))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if res.Success {
		t.Fatal("60 rest days should not fit in the season")
	}
	hasRest := false
	for _, c := range res.Conflicts {
		if c.Reason == ReasonRestDays || c.Reason == ReasonHorizon {
			hasRest = true
		}
	}
	if !hasRest {
		t.Errorf("conflict reasons = %+v", res.Conflicts)
	}

	loose := fixture.Options{BalanceHomeAway: true, ApplyConstraints: false}
	res, err = Optimize(context.Background(), tr, rounds, cfg.Tournament.StartDate.Time, OptionsFrom(loose, 2))
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if !res.Success {
		t.Errorf("without constraints every match should fit, conflicts: %+v", res.Conflicts)
	}

	t.Run("derbies still spaced", func(t *testing.T) {
		opts := fixture.Options{BalanceHomeAway: true, RespectDerbies: true, ApplyConstraints: false}
		res, err := Optimize(context.Background(), tr, rounds, cfg.Tournament.StartDate.Time, OptionsFrom(opts, 2))
		if err != nil {
			t.Fatalf("Optimize() error: %v", err)
		}
		if !res.Success {
			t.Fatalf("conflicts: %+v", res.Conflicts)
		}
		for team, dates := range teamDates(res.Scheduled, true) {
			for i := 1; i < len(dates); i++ {
				if dates[i].Sub(dates[i-1]) < 28*24*time.Hour {
					t.Errorf("%s derbies too close: %s, %s", team, dates[i-1].Format("01/02"), dates[i].Format("01/02"))
				}
			}
		}
	})
}

func TestOptimizeDeterministic(t *testing.T) {
	cfg := schedulerTestConfig()
	genOpts := fixture.Options{BalanceHomeAway: true, RespectDerbies: true, ApplyConstraints: true, Seed: 3}
	tr, rounds := buildRounds(t, cfg, genOpts)
	opts := OptionsFrom(genOpts, 6)

	a, err := Optimize(context.Background(), tr, rounds, cfg.Tournament.StartDate.Time, opts)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	b, err := Optimize(context.Background(), tr, rounds, cfg.Tournament.StartDate.Time, opts)
	if err != nil {
		t.Fatalf("Optimize() error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same inputs produced different schedules")
	}
}

func TestOptimizeErrors(t *testing.T) {
	cfg := schedulerTestConfig()
	tr, rounds := buildRounds(t, cfg, fixture.Options{})

	t.Run("no slots", func(t *testing.T) {
		_, err := Optimize(context.Background(), tr, rounds, mustDate("2030-01-01"), Options{Attempts: 1})
		if !errors.Is(err, ErrNoSlots) {
			t.Errorf("error = %v, want ErrNoSlots", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Optimize(ctx, tr, rounds, cfg.Tournament.StartDate.Time, Options{Attempts: 3})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("no rounds", func(t *testing.T) {
		res, err := Optimize(context.Background(), tr, nil, cfg.Tournament.StartDate.Time, Options{})
		if err != nil {
			t.Fatalf("Optimize() error: %v", err)
		}
		if !res.Success || len(res.Scheduled) != 0 {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestDominantReason(t *testing.T) {
	tests := []struct {
		in   map[string]int
		want string
	}{
		{map[string]int{}, ReasonHorizon},
		{map[string]int{ReasonSlotTaken: 4, ReasonRestDays: 2}, ReasonSlotTaken},
		{map[string]int{ReasonCapacity: 2, ReasonRestDays: 2}, ReasonRestDays},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			if got := dominantReason(tt.in); got != tt.want {
				t.Errorf("dominantReason(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

// teamDates extracts sorted match dates per team, optionally derbies only.
func teamDates(scheduled []Scheduled, derbiesOnly bool) map[string][]time.Time {
	m := make(map[string][]time.Time)
	for _, s := range scheduled {
		if derbiesOnly && !s.Derby {
			continue
		}
		m[s.Home] = insertSorted(m[s.Home], s.Date)
		m[s.Away] = insertSorted(m[s.Away], s.Date)
	}
	return m
}
