package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

const testConfigYAML = `
tournament:
  id: county-2026
  name: County League
  legs: 2
  start_date: "2026-08-01"
  end_date: "2026-12-20"
  blackout_dates:
    - date: "2026-10-10"
      reason: "Cup weekend"
  derbies:
    - [ROV, UTD]

teams:
  - id: ROV
    name: Rovers
    short_code: ROV
    city: Millbrook
    home_stadium: park
  - id: UTD
    name: United
    city: Ashford
  - id: ATH
    name: Athletic
    county: Kent
  - id: WAN
    name: Wanderers
    county: Kent

stadiums:
  - id: park
    name: Park Lane
    capacity: 12000
    location: Millbrook
    restrictions:
      - date: "2026-09-05"
        times: ["15:00"]
        reason: "Concert"
      - start_date: "2026-11-01"
        end_date: "2026-11-03"
        reason: "Pitch relaying"
  - id: road
    name: Station Road
    capacity: 4000
    time_slots:
      - {day: tuesday, start: "19:45", end: "21:45", priority: 2}

time_slots:
  - {day: saturday, start: "15:00", end: "17:00", priority: 5}
  - {day: sunday, start: "16:30", end: "18:30", priority: 10}

rules:
  max_matches_per_day: 3
  min_rest_days: 3
  derby_min_days: 14
  derby_min_capacity: 10000

options:
  balance_home_away: true
  respect_derbies: true
  apply_constraints: true
  seed: 7
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("tournament", func(t *testing.T) {
		if cfg.Tournament.ID != "county-2026" {
			t.Errorf("id = %q, want county-2026", cfg.Tournament.ID)
		}
		if cfg.Tournament.Format != FormatRoundRobin {
			t.Errorf("format = %q, want default %q", cfg.Tournament.Format, FormatRoundRobin)
		}
		if cfg.Tournament.Legs != 2 {
			t.Errorf("legs = %d, want 2", cfg.Tournament.Legs)
		}
		if cfg.Tournament.StartDate.Time != mustDate("2026-08-01") {
			t.Errorf("start date = %v, want 2026-08-01", cfg.Tournament.StartDate.Time)
		}
		if cfg.Horizon() != mustDate("2026-12-20") {
			t.Errorf("horizon = %v, want 2026-12-20", cfg.Horizon())
		}
		if len(cfg.Tournament.Derbies) != 1 {
			t.Errorf("derbies = %d, want 1", len(cfg.Tournament.Derbies))
		}
	})

	t.Run("teams", func(t *testing.T) {
		if len(cfg.Teams) != 4 {
			t.Fatalf("teams = %d, want 4", len(cfg.Teams))
		}
		rov, ok := cfg.Team("ROV")
		if !ok {
			t.Fatal("team ROV not found")
		}
		if rov.HomeStadium != "park" || rov.City != "Millbrook" {
			t.Errorf("ROV = %+v", rov)
		}
		ids := cfg.TeamIDs()
		if strings.Join(ids, ",") != "ROV,UTD,ATH,WAN" {
			t.Errorf("TeamIDs() = %v", ids)
		}
	})

	t.Run("stadiums", func(t *testing.T) {
		park, ok := cfg.Stadium("park")
		if !ok {
			t.Fatal("stadium park not found")
		}
		if park.Capacity != 12000 {
			t.Errorf("capacity = %d, want 12000", park.Capacity)
		}
		if len(park.Restrictions) != 2 {
			t.Fatalf("restrictions = %d, want 2", len(park.Restrictions))
		}
		if got := len(park.Restrictions[1].Dates()); got != 3 {
			t.Errorf("range restriction covers %d dates, want 3", got)
		}
	})

	t.Run("time slot fallback", func(t *testing.T) {
		park, _ := cfg.Stadium("park")
		if got := len(cfg.SlotsFor(park)); got != 2 {
			t.Errorf("park slots = %d, want 2 defaults", got)
		}
		road, _ := cfg.Stadium("road")
		slots := cfg.SlotsFor(road)
		if len(slots) != 1 || slots[0].Day != "tuesday" {
			t.Errorf("road slots = %v, want its own tuesday slot", slots)
		}
		wd, ok := slots[0].Weekday()
		if !ok || wd != time.Tuesday {
			t.Errorf("Weekday() = %v, %v", wd, ok)
		}
	})

	t.Run("rules", func(t *testing.T) {
		if cfg.Rules.MinRestDays != 3 {
			t.Errorf("min rest days = %d, want 3", cfg.Rules.MinRestDays)
		}
		if cfg.Rules.DerbyMinDays != 14 {
			t.Errorf("derby min days = %d, want 14", cfg.Rules.DerbyMinDays)
		}
		if !cfg.Rules.Sequential() {
			t.Error("sequential rounds should default to true")
		}
	})

	t.Run("options", func(t *testing.T) {
		if !cfg.Options.BalanceHomeAway || !cfg.Options.RespectDerbies {
			t.Errorf("options = %+v", cfg.Options)
		}
		if cfg.Options.Attempts != DefaultAttempts {
			t.Errorf("attempts = %d, want default %d", cfg.Options.Attempts, DefaultAttempts)
		}
		if cfg.Options.Seed != 7 {
			t.Errorf("seed = %d, want 7", cfg.Options.Seed)
		}
	})

	t.Run("default points", func(t *testing.T) {
		p := cfg.StandingsPoints()
		if p.Win != 3 || p.Draw != 1 || p.Loss != 0 {
			t.Errorf("points = %+v, want 3/1/0", p)
		}
	})
}

func TestLoadConfigValidation(t *testing.T) {
	base := func(extra string) string {
		return `
tournament:
  start_date: "2026-08-01"
stadiums:
  - id: s1
    name: Ground
time_slots:
  - {day: saturday, start: "15:00", end: "17:00"}
` + extra
	}

	tests := []struct {
		name string
		yaml string
	}{
		{"one team", base(`
teams:
  - id: A
`)},
		{"duplicate team id", base(`
teams:
  - id: A
  - id: A
`)},
		{"unknown home stadium", base(`
teams:
  - id: A
    home_stadium: nowhere
  - id: B
`)},
		{"derby with unknown team", `
tournament:
  start_date: "2026-08-01"
  derbies:
    - [A, Z]
teams: [{id: A}, {id: B}]
stadiums: [{id: s1}]
time_slots:
  - {day: saturday, start: "15:00", end: "17:00"}
`},
		{"end before start", `
tournament:
  start_date: "2026-08-01"
  end_date: "2026-07-01"
teams: [{id: A}, {id: B}]
stadiums: [{id: s1}]
time_slots:
  - {day: saturday, start: "15:00", end: "17:00"}
`},
		{"no stadiums", `
tournament:
  start_date: "2026-08-01"
teams: [{id: A}, {id: B}]
`},
		{"bad day", `
tournament:
  start_date: "2026-08-01"
teams: [{id: A}, {id: B}]
stadiums: [{id: s1}]
time_slots:
  - {day: funday, start: "15:00", end: "17:00"}
`},
		{"slot ends before start", `
tournament:
  start_date: "2026-08-01"
teams: [{id: A}, {id: B}]
stadiums: [{id: s1}]
time_slots:
  - {day: saturday, start: "17:00", end: "15:00"}
`},
		{"restriction with date and range", `
tournament:
  start_date: "2026-08-01"
teams: [{id: A}, {id: B}]
stadiums:
  - id: s1
    restrictions:
      - date: "2026-08-02"
        start_date: "2026-08-02"
        end_date: "2026-08-03"
time_slots:
  - {day: saturday, start: "15:00", end: "17:00"}
`},
		{"negative rule", `
tournament:
  start_date: "2026-08-01"
teams: [{id: A}, {id: B}]
stadiums: [{id: s1}]
time_slots:
  - {day: saturday, start: "15:00", end: "17:00"}
rules:
  min_rest_days: -1
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromBytes([]byte(tt.yaml)); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestConfigFromJSON(t *testing.T) {
	body := `{
		"tournament": {"id": "t1", "start_date": "2026-08-01", "legs": 1},
		"teams": [{"id": "A"}, {"id": "B"}, {"id": "C"}],
		"stadiums": [{"id": "s1", "capacity": 500}],
		"time_slots": [{"day": "sunday", "start": "14:00", "end": "16:00", "priority": 3}]
	}`
	var cfg Config
	if err := json.Unmarshal([]byte(body), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize(): %v", err)
	}
	if cfg.Tournament.StartDate.Time != mustDate("2026-08-01") {
		t.Errorf("start = %v", cfg.Tournament.StartDate.Time)
	}
	if cfg.Horizon() != mustDate("2027-08-01") {
		t.Errorf("default horizon = %v, want one year after start", cfg.Horizon())
	}

	out, err := json.Marshal(cfg.Tournament.StartDate)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"2026-08-01"` {
		t.Errorf("marshal date = %s", out)
	}
}
