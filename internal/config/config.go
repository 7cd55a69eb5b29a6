package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Date is a wrapper around time.Time for YAML and JSON date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse(dateLayout, value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid date %s: %w", data, err)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(dateLayout))
}

func (d Date) String() string {
	return d.Time.Format(dateLayout)
}

type BlackoutDate struct {
	Date   Date   `yaml:"date" json:"date"`
	Reason string `yaml:"reason" json:"reason"`
}

type Tournament struct {
	ID            string         `yaml:"id" json:"id"`
	Name          string         `yaml:"name" json:"name"`
	Format        string         `yaml:"format" json:"format"`
	Legs          int            `yaml:"legs" json:"legs"`
	StartDate     Date           `yaml:"start_date" json:"start_date"`
	EndDate       *Date          `yaml:"end_date" json:"end_date,omitempty"`
	BlackoutDates []BlackoutDate `yaml:"blackout_dates" json:"blackout_dates,omitempty"`
	Derbies       [][]string     `yaml:"derbies" json:"derbies,omitempty"`
}

type Team struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	ShortCode    string `yaml:"short_code" json:"short_code,omitempty"`
	Organization string `yaml:"organization" json:"organization,omitempty"`
	City         string `yaml:"city" json:"city,omitempty"`
	County       string `yaml:"county" json:"county,omitempty"`
	HomeStadium  string `yaml:"home_stadium" json:"home_stadium,omitempty"`
}

// TimeSlot is a weekly window in which a match may kick off.
type TimeSlot struct {
	Day      string `yaml:"day" json:"day"`
	Start    string `yaml:"start" json:"start"`
	End      string `yaml:"end" json:"end"`
	Priority int    `yaml:"priority" json:"priority"`
}

// Weekday returns the slot's day as a time.Weekday.
func (ts TimeSlot) Weekday() (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(ts.Day)]
	return wd, ok
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

type Restriction struct {
	Date      *Date    `yaml:"date" json:"date,omitempty"`
	StartDate *Date    `yaml:"start_date" json:"start_date,omitempty"`
	EndDate   *Date    `yaml:"end_date" json:"end_date,omitempty"`
	Times     []string `yaml:"times" json:"times,omitempty"`
	Reason    string   `yaml:"reason" json:"reason"`
}

// Dates returns all dates covered by this restriction.
// Supports single date (date:) or range (start_date:/end_date:).
func (r *Restriction) Dates() []time.Time {
	if r.StartDate != nil && r.EndDate != nil {
		var dates []time.Time
		d := r.StartDate.Time
		for !d.After(r.EndDate.Time) {
			dates = append(dates, d)
			d = d.AddDate(0, 0, 1)
		}
		return dates
	}
	if r.Date != nil {
		return []time.Time{r.Date.Time}
	}
	return nil
}

type Stadium struct {
	ID           string        `yaml:"id" json:"id"`
	Name         string        `yaml:"name" json:"name"`
	Capacity     int           `yaml:"capacity" json:"capacity"`
	Location     string        `yaml:"location" json:"location,omitempty"`
	TimeSlots    []TimeSlot    `yaml:"time_slots" json:"time_slots,omitempty"`
	Restrictions []Restriction `yaml:"restrictions" json:"restrictions,omitempty"`
}

type Rules struct {
	MaxMatchesPerDay int   `yaml:"max_matches_per_day" json:"max_matches_per_day"`
	MinRestDays      int   `yaml:"min_rest_days" json:"min_rest_days"`
	DerbyMinDays     int   `yaml:"derby_min_days" json:"derby_min_days"`
	MinCapacity      int   `yaml:"min_capacity" json:"min_capacity"`
	DerbyMinCapacity int   `yaml:"derby_min_capacity" json:"derby_min_capacity"`
	SequentialRounds *bool `yaml:"sequential_rounds" json:"sequential_rounds,omitempty"`
}

// Sequential reports whether rounds must be played one after another.
// Defaults to true when unset.
func (r Rules) Sequential() bool {
	return r.SequentialRounds == nil || *r.SequentialRounds
}

type Options struct {
	RandomizeHomeAway bool  `yaml:"randomize_home_away" json:"randomize_home_away"`
	BalanceHomeAway   bool  `yaml:"balance_home_away" json:"balance_home_away"`
	RespectDerbies    bool  `yaml:"respect_derbies" json:"respect_derbies"`
	ApplyConstraints  bool  `yaml:"apply_constraints" json:"apply_constraints"`
	PreviewOnly       bool  `yaml:"preview_only" json:"preview_only"`
	Seed              int64 `yaml:"seed" json:"seed"`
	Attempts          int   `yaml:"attempts" json:"attempts"`
}

type Points struct {
	Win  int `yaml:"win" json:"win"`
	Draw int `yaml:"draw" json:"draw"`
	Loss int `yaml:"loss" json:"loss"`
}

type Config struct {
	Tournament Tournament `yaml:"tournament" json:"tournament"`
	Teams      []Team     `yaml:"teams" json:"teams"`
	Stadiums   []Stadium  `yaml:"stadiums" json:"stadiums"`
	TimeSlots  []TimeSlot `yaml:"time_slots" json:"time_slots,omitempty"`
	Rules      Rules      `yaml:"rules" json:"rules"`
	Options    Options    `yaml:"options" json:"options"`
	Points     *Points    `yaml:"points" json:"points,omitempty"`
}

const (
	FormatRoundRobin = "round_robin"
	DefaultAttempts  = 20
)

// TeamIDs returns all team ids in configured order.
func (c *Config) TeamIDs() []string {
	ids := make([]string, 0, len(c.Teams))
	for _, t := range c.Teams {
		ids = append(ids, t.ID)
	}
	return ids
}

// Team returns the team with the given id.
func (c *Config) Team(id string) (Team, bool) {
	for _, t := range c.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// Stadium returns the stadium with the given id.
func (c *Config) Stadium(id string) (Stadium, bool) {
	for _, s := range c.Stadiums {
		if s.ID == id {
			return s, true
		}
	}
	return Stadium{}, false
}

// SlotsFor returns the time slots of a stadium, falling back to the
// tournament-wide defaults.
func (c *Config) SlotsFor(s Stadium) []TimeSlot {
	if len(s.TimeSlots) > 0 {
		return s.TimeSlots
	}
	return c.TimeSlots
}

// Horizon returns the last date matches may be scheduled on.
func (c *Config) Horizon() time.Time {
	if c.Tournament.EndDate != nil {
		return c.Tournament.EndDate.Time
	}
	return c.Tournament.StartDate.Time.AddDate(1, 0, 0)
}

// StandingsPoints returns the configured points, defaulting to 3/1/0.
func (c *Config) StandingsPoints() Points {
	if c.Points == nil {
		return Points{Win: 3, Draw: 1, Loss: 0}
	}
	return *c.Points
}

// LoadFromBytes parses YAML bytes into a Config and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// Normalize fills defaults and validates the config. Configs decoded from
// JSON must go through it before use.
func (c *Config) Normalize() error {
	if c.Tournament.Format == "" {
		c.Tournament.Format = FormatRoundRobin
	}
	if c.Tournament.Legs == 0 {
		c.Tournament.Legs = 1
	}
	if c.Options.Attempts <= 0 {
		c.Options.Attempts = DefaultAttempts
	}
	return c.validate()
}

func (c *Config) validate() error {
	if c.Tournament.StartDate.Time.IsZero() {
		return fmt.Errorf("tournament start_date is required")
	}
	if c.Tournament.EndDate != nil && c.Tournament.EndDate.Time.Before(c.Tournament.StartDate.Time) {
		return fmt.Errorf("end date %s must not be before start date %s",
			c.Tournament.EndDate, c.Tournament.StartDate)
	}
	if c.Tournament.Legs < 1 {
		return fmt.Errorf("legs must be at least 1, got %d", c.Tournament.Legs)
	}

	if len(c.Teams) < 2 {
		return fmt.Errorf("at least two teams are required")
	}
	if len(c.Stadiums) == 0 {
		return fmt.Errorf("at least one stadium is required")
	}

	stadiums := make(map[string]bool)
	for _, s := range c.Stadiums {
		if s.ID == "" {
			return fmt.Errorf("stadium %q has no id", s.Name)
		}
		if stadiums[s.ID] {
			return fmt.Errorf("stadium id %q is used twice", s.ID)
		}
		stadiums[s.ID] = true
		if s.Capacity < 0 {
			return fmt.Errorf("stadium %q: capacity must not be negative", s.ID)
		}
		slots := c.SlotsFor(s)
		if len(slots) == 0 {
			return fmt.Errorf("stadium %q has no time slots and no defaults are configured", s.ID)
		}
		for _, ts := range slots {
			if err := validateTimeSlot(ts); err != nil {
				return fmt.Errorf("stadium %q: %w", s.ID, err)
			}
		}
		if err := validateRestrictions(s); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, t := range c.Teams {
		if t.ID == "" {
			return fmt.Errorf("team %q has no id", t.Name)
		}
		if seen[t.ID] {
			return fmt.Errorf("team id %q is used twice", t.ID)
		}
		seen[t.ID] = true
		if t.HomeStadium != "" && !stadiums[t.HomeStadium] {
			return fmt.Errorf("team %q: unknown home stadium %q", t.ID, t.HomeStadium)
		}
	}

	for _, pair := range c.Tournament.Derbies {
		if len(pair) != 2 {
			return fmt.Errorf("derby %v must name exactly two teams", pair)
		}
		for _, id := range pair {
			if !seen[id] {
				return fmt.Errorf("derby %v: unknown team %q", pair, id)
			}
		}
		if pair[0] == pair[1] {
			return fmt.Errorf("derby %v: a team cannot be its own rival", pair)
		}
	}

	r := c.Rules
	if r.MaxMatchesPerDay < 0 || r.MinRestDays < 0 || r.DerbyMinDays < 0 || r.MinCapacity < 0 || r.DerbyMinCapacity < 0 {
		return fmt.Errorf("rules must not be negative")
	}

	return nil
}

func validateTimeSlot(ts TimeSlot) error {
	if _, ok := ts.Weekday(); !ok {
		return fmt.Errorf("time slot has invalid day %q", ts.Day)
	}
	start, err := time.Parse("15:04", ts.Start)
	if err != nil {
		return fmt.Errorf("time slot has invalid start %q", ts.Start)
	}
	end, err := time.Parse("15:04", ts.End)
	if err != nil {
		return fmt.Errorf("time slot has invalid end %q", ts.End)
	}
	if !end.After(start) {
		return fmt.Errorf("time slot %s %s-%s must end after it starts", ts.Day, ts.Start, ts.End)
	}
	if ts.Priority < 0 {
		return fmt.Errorf("time slot %s %s has negative priority", ts.Day, ts.Start)
	}
	return nil
}

func validateRestrictions(s Stadium) error {
	for _, r := range s.Restrictions {
		hasDate := r.Date != nil
		hasRange := r.StartDate != nil || r.EndDate != nil
		if !hasDate && !hasRange {
			return fmt.Errorf("stadium %q: restriction must have either 'date' or 'start_date'/'end_date'", s.ID)
		}
		if hasDate && hasRange {
			return fmt.Errorf("stadium %q: restriction cannot have both 'date' and 'start_date'/'end_date'", s.ID)
		}
		if hasRange && (r.StartDate == nil || r.EndDate == nil) {
			return fmt.Errorf("stadium %q: restriction with date range must have both 'start_date' and 'end_date'", s.ID)
		}
		if hasRange && r.EndDate.Time.Before(r.StartDate.Time) {
			return fmt.Errorf("stadium %q: restriction end_date must be on or after start_date", s.ID)
		}
	}
	return nil
}
