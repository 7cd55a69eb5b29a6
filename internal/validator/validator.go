package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/fixtures/internal/excel"
	"github.com/derekprior/fixtures/internal/schedule"
	"github.com/derekprior/fixtures/internal/tournament"
)

// Violation represents a rule broken by a fixtures workbook.
type Violation struct {
	Row     int    // sheet row, 0 when the violation spans rows
	Type    string // "error" or "warning"
	Message string
}

// Validate reads a fixtures workbook and checks it against the tournament rules.
func Validate(t *tournament.Tournament, path string) ([]Violation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	rows, err := excel.ReadFixtures(f)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}

	return Check(t, rows), nil
}

// Check runs every rule against parsed fixture rows. Errors come first,
// then warnings, each by row.
func Check(t *tournament.Tournament, rows []excel.FixtureRow) []Violation {
	var scheduled []excel.FixtureRow
	for _, r := range rows {
		if r.Scheduled() {
			scheduled = append(scheduled, r)
		}
	}

	var violations []Violation

	// Check hard constraints
	violations = append(violations, checkUnknownTeams(t, rows)...)
	violations = append(violations, checkTeamSameDay(scheduled)...)
	violations = append(violations, checkMaxMatchesPerDay(t, scheduled)...)
	violations = append(violations, checkRestDays(t, scheduled)...)
	violations = append(violations, checkDerbySpacing(t, scheduled)...)
	violations = append(violations, checkStadiumSlots(scheduled)...)

	// Check completeness
	violations = append(violations, checkPairings(t, rows)...)
	violations = append(violations, checkUnscheduled(rows)...)

	// Check guidelines
	violations = append(violations, checkHomeAwayBalance(t, rows)...)
	violations = append(violations, checkBlackouts(t, scheduled)...)

	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Type != b.Type {
			return a.Type == "error"
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Message < b.Message
	})
	return violations
}

func checkUnknownTeams(t *tournament.Tournament, rows []excel.FixtureRow) []Violation {
	var violations []Violation
	for _, r := range rows {
		for _, team := range []string{r.Home, r.Away} {
			if _, ok := t.Team(team); !ok {
				violations = append(violations, Violation{
					Row:     r.Row,
					Type:    "error",
					Message: fmt.Sprintf("unknown team %q", team),
				})
			}
		}
		if r.Home == r.Away {
			violations = append(violations, Violation{
				Row:     r.Row,
				Type:    "error",
				Message: fmt.Sprintf("%s plays itself", r.Home),
			})
		}
	}
	return violations
}

func checkTeamSameDay(rows []excel.FixtureRow) []Violation {
	type teamDay struct {
		team string
		date time.Time
	}
	counts := make(map[teamDay][]int)
	for _, r := range rows {
		counts[teamDay{r.Home, r.Date}] = append(counts[teamDay{r.Home, r.Date}], r.Row)
		counts[teamDay{r.Away, r.Date}] = append(counts[teamDay{r.Away, r.Date}], r.Row)
	}

	var violations []Violation
	for td, rowNums := range counts {
		if len(rowNums) > 1 {
			violations = append(violations, Violation{
				Row:     rowNums[1],
				Type:    "error",
				Message: fmt.Sprintf("%s plays %d matches on %s", td.team, len(rowNums), td.date.Format("01/02")),
			})
		}
	}
	return violations
}

func checkMaxMatchesPerDay(t *tournament.Tournament, rows []excel.FixtureRow) []Violation {
	limit := t.Rules().MaxMatchesPerDay
	if limit <= 0 {
		return nil
	}

	counts := make(map[time.Time][]int)
	for _, r := range rows {
		counts[r.Date] = append(counts[r.Date], r.Row)
	}

	var violations []Violation
	for d, rowNums := range counts {
		if len(rowNums) > limit {
			violations = append(violations, Violation{
				Row:     rowNums[limit],
				Type:    "error",
				Message: fmt.Sprintf("%d matches on %s (max %d)", len(rowNums), d.Format("01/02"), limit),
			})
		}
	}
	return violations
}

type dated struct {
	date time.Time
	row  int
}

// checkRestDays follows apply_constraints and checkDerbySpacing follows
// respect_derbies, matching what generate enforced.
func checkRestDays(t *tournament.Tournament, rows []excel.FixtureRow) []Violation {
	minDays := t.Rules().MinRestDays
	if !t.Config().Options.ApplyConstraints || minDays <= 1 {
		return nil
	}
	return gapViolations(buildTeamDates(rows, nil), minDays, "rests %d days between %s and %s (min %d)")
}

func checkDerbySpacing(t *tournament.Tournament, rows []excel.FixtureRow) []Violation {
	minDays := t.Rules().DerbyMinDays
	if !t.Config().Options.RespectDerbies || minDays <= 0 {
		return nil
	}
	derby := func(r excel.FixtureRow) bool { return r.Derby || t.IsDerby(r.Home, r.Away) }
	return gapViolations(buildTeamDates(rows, derby), minDays, "plays derbies %d days apart on %s and %s (min %d)")
}

func gapViolations(teamDates map[string][]dated, minDays int, format string) []Violation {
	var violations []Violation
	for team, dates := range teamDates {
		for i := 1; i < len(dates); i++ {
			days := int(dates[i].date.Sub(dates[i-1].date).Hours() / 24)
			if days == 0 {
				continue // reported as a same-day clash
			}
			if days < minDays {
				violations = append(violations, Violation{
					Row:  dates[i].row,
					Type: "error",
					Message: team + " " + fmt.Sprintf(format, days,
						dates[i-1].date.Format("01/02"), dates[i].date.Format("01/02"), minDays),
				})
			}
		}
	}
	return violations
}

func checkStadiumSlots(rows []excel.FixtureRow) []Violation {
	type slotKey struct {
		date    time.Time
		time    string
		stadium string
	}
	seen := make(map[slotKey]int)
	var violations []Violation
	for _, r := range rows {
		k := slotKey{r.Date, r.Time, r.Stadium}
		if first, ok := seen[k]; ok {
			violations = append(violations, Violation{
				Row:  r.Row,
				Type: "error",
				Message: fmt.Sprintf("%s at %s %s is already used by row %d",
					r.Stadium, r.Date.Format("01/02"), r.Time, first),
			})
			continue
		}
		seen[k] = r.Row
	}
	return violations
}

func checkPairings(t *tournament.Tournament, rows []excel.FixtureRow) []Violation {
	type pair struct{ a, b string }
	counts := make(map[pair]int)
	for _, r := range rows {
		a, b := r.Home, r.Away
		if a > b {
			a, b = b, a
		}
		counts[pair{a, b}]++
	}

	var violations []Violation
	ids := t.TeamIDs()
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if a > b {
				a, b = b, a
			}
			if n := counts[pair{a, b}]; n != t.Legs() {
				violations = append(violations, Violation{
					Type:    "error",
					Message: fmt.Sprintf("%s vs %s appears %d times, want %d", a, b, n, t.Legs()),
				})
			}
		}
	}
	return violations
}

func checkUnscheduled(rows []excel.FixtureRow) []Violation {
	var violations []Violation
	for _, r := range rows {
		if !r.Scheduled() {
			violations = append(violations, Violation{
				Row:     r.Row,
				Type:    "error",
				Message: fmt.Sprintf("%s vs %s (round %d) has no date", r.Home, r.Away, r.Round),
			})
		}
	}
	return violations
}

func checkHomeAwayBalance(t *tournament.Tournament, rows []excel.FixtureRow) []Violation {
	home := make(map[string]int)
	away := make(map[string]int)
	for _, r := range rows {
		home[r.Home]++
		away[r.Away]++
	}

	var violations []Violation
	for _, team := range t.TeamIDs() {
		diff := home[team] - away[team]
		if diff > 1 || diff < -1 {
			violations = append(violations, Violation{
				Type:    "warning",
				Message: fmt.Sprintf("%s home/away imbalance: %d home, %d away", team, home[team], away[team]),
			})
		}
	}
	return violations
}

// checkBlackouts warns about matches moved onto blacked-out dates or
// restricted stadium slots.
func checkBlackouts(t *tournament.Tournament, rows []excel.FixtureRow) []Violation {
	if len(rows) == 0 {
		return nil
	}
	from, to := rows[0].Date, rows[0].Date
	for _, r := range rows {
		if r.Date.Before(from) {
			from = r.Date
		}
		if r.Date.After(to) {
			to = r.Date
		}
	}

	type slotKey struct {
		date    time.Time
		time    string
		stadium string
	}
	blocked := make(map[slotKey]string)
	for _, b := range schedule.GenerateBlackoutSlots(t.Config(), from, to) {
		blocked[slotKey{b.Date, b.Time, b.Stadium}] = b.Reason
	}
	blackoutDays := make(map[time.Time]string)
	for _, b := range t.Config().Tournament.BlackoutDates {
		blackoutDays[b.Date.Time] = b.Reason
	}

	var violations []Violation
	for _, r := range rows {
		reason, ok := blackoutDays[r.Date]
		if !ok {
			reason, ok = blocked[slotKey{r.Date, r.Time, r.Stadium}]
		}
		if ok {
			violations = append(violations, Violation{
				Row:  r.Row,
				Type: "warning",
				Message: fmt.Sprintf("%s vs %s on %s at %s is blacked out (%s)",
					r.Home, r.Away, r.Date.Format("01/02"), r.Stadium, reason),
			})
		}
	}
	return violations
}

// buildTeamDates collects sorted match dates per team, optionally only for
// rows matching keep.
func buildTeamDates(rows []excel.FixtureRow, keep func(excel.FixtureRow) bool) map[string][]dated {
	m := make(map[string][]dated)
	for _, r := range rows {
		if keep != nil && !keep(r) {
			continue
		}
		m[r.Home] = append(m[r.Home], dated{r.Date, r.Row})
		m[r.Away] = append(m[r.Away], dated{r.Date, r.Row})
	}
	for team := range m {
		sortDates(m[team])
	}
	return m
}

func sortDates(dates []dated) {
	for i := 1; i < len(dates); i++ {
		for j := i; j > 0 && dates[j].date.Before(dates[j-1].date); j-- {
			dates[j], dates[j-1] = dates[j-1], dates[j]
		}
	}
}
