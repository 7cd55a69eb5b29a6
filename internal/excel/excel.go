package excel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/derekprior/fixtures/internal/schedule"
	"github.com/derekprior/fixtures/internal/standings"
	"github.com/derekprior/fixtures/internal/tournament"
)

// Sheet names.
const (
	FixturesSheet  = "Fixtures"
	BlackoutsSheet = "Blackouts"
	ConflictsSheet = "Conflicts"
	StandingsSheet = "Standings"
)

const (
	dateLayout        = "01/02/2006"
	statusScheduled   = "scheduled"
	statusUnscheduled = "unscheduled"
)

// FixtureHeaders are the columns of the Fixtures sheet, in order.
var FixtureHeaders = []string{
	"Match", "Round", "Leg", "Date", "Day", "Time", "Stadium",
	"Home", "Away", "Derby", "Priority", "Status", "Home Score", "Away Score",
}

var teamHeaders = []string{"Date", "Day", "Time", "Stadium", "Opponent", "Home/Away", "Round"}

// FixtureRow is one line of the Fixtures sheet. Row is the 1-based sheet row.
type FixtureRow struct {
	Row       int
	MatchID   string
	Round     int
	Leg       int
	Date      time.Time // zero when unscheduled
	Time      string
	Stadium   string
	Home      string
	Away      string
	Derby     bool
	Priority  int
	Status    string
	HomeScore *int
	AwayScore *int
}

// Scheduled reports whether the row has a date.
func (r FixtureRow) Scheduled() bool { return !r.Date.IsZero() }

// Played reports whether both scores are filled in.
func (r FixtureRow) Played() bool { return r.HomeScore != nil && r.AwayScore != nil }

// Generate creates a workbook with the fixture list, blackouts, one sheet
// per team and any unresolved conflicts.
func Generate(t *tournament.Tournament, result *schedule.Result, blackouts []schedule.BlackoutSlot) (*excelize.File, error) {
	f := excelize.NewFile()

	// Set default font for the workbook
	f.SetDefaultFont("Arial")

	rows := rowsFromResult(result)

	if err := writeFixturesSheet(f, rows); err != nil {
		return nil, fmt.Errorf("writing fixtures sheet: %w", err)
	}
	if err := writeBlackoutsSheet(f, blackouts); err != nil {
		return nil, fmt.Errorf("writing blackouts sheet: %w", err)
	}
	if err := writeTeamSheets(f, t.TeamIDs(), rows); err != nil {
		return nil, fmt.Errorf("writing team sheets: %w", err)
	}
	if len(result.Conflicts) > 0 {
		if err := writeConflictsSheet(f, result); err != nil {
			return nil, fmt.Errorf("writing conflicts sheet: %w", err)
		}
	}

	f.DeleteSheet("Sheet1")
	return f, nil
}

func rowsFromResult(result *schedule.Result) []FixtureRow {
	rows := make([]FixtureRow, 0, len(result.Scheduled)+len(result.Unscheduled))
	for _, sm := range result.Scheduled {
		rows = append(rows, FixtureRow{
			MatchID:  sm.ID,
			Round:    sm.Round,
			Leg:      sm.Leg,
			Date:     sm.Date,
			Time:     sm.Time,
			Stadium:  sm.Stadium,
			Home:     sm.Home,
			Away:     sm.Away,
			Derby:    sm.Derby,
			Priority: sm.BroadcastPriority,
			Status:   statusScheduled,
		})
	}
	for _, m := range result.Unscheduled {
		rows = append(rows, FixtureRow{
			MatchID:  m.ID,
			Round:    m.Round,
			Leg:      m.Leg,
			Home:     m.Home,
			Away:     m.Away,
			Derby:    m.Derby,
			Priority: m.BroadcastPriority,
			Status:   statusUnscheduled,
		})
	}
	return rows
}

type styles struct {
	header int
	cell   int
	center int
}

func newStyles(f *excelize.File) styles {
	var s styles
	s.header, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 16, Family: "Arial"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	s.cell, _ = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	s.center, _ = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Family: "Arial"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return s
}

func writeHeaders(f *excelize.File, sheet string, headers []string, st styles) {
	for i, h := range headers {
		f.SetCellValue(sheet, cellRef(i+1, 1), h)
	}
	if st.header != 0 {
		f.SetCellStyle(sheet, cellRef(1, 1), cellRef(len(headers), 1), st.header)
	}
}

func writeFixturesSheet(f *excelize.File, rows []FixtureRow) error {
	sheet := FixturesSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)
	writeHeaders(f, sheet, FixtureHeaders, st)

	for i, r := range rows {
		row := i + 2
		values := []any{r.MatchID, r.Round, r.Leg, "", "", r.Time, r.Stadium, r.Home, r.Away, "", r.Priority, r.Status, "", ""}
		if r.Scheduled() {
			values[3] = r.Date.Format(dateLayout)
			values[4] = r.Date.Format("Mon")
		}
		if r.Derby {
			values[9] = "Yes"
		}
		if r.HomeScore != nil {
			values[12] = *r.HomeScore
		}
		if r.AwayScore != nil {
			values[13] = *r.AwayScore
		}
		for col, v := range values {
			f.SetCellValue(sheet, cellRef(col+1, row), v)
		}
		if st.center != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(FixtureHeaders), row), st.center)
		}
	}

	// Set column widths (sized for Arial 16)
	widths := map[string]float64{
		"A": 22, "B": 10, "C": 8, "D": 18, "E": 8, "F": 10, "G": 18,
		"H": 14, "I": 14, "J": 10, "K": 12, "L": 16, "M": 16, "N": 16,
	}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}

	if len(rows) == 0 {
		return nil
	}

	// Conditional formatting: derbies in gold, unscheduled rows in light red
	lastRow := len(rows) + 1
	rowRange := fmt.Sprintf("A2:N%d", lastRow)
	derbyFill, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFEB9C"}},
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	redFill, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
		Font: &excelize.Font{Size: 16, Family: "Arial"},
	})
	return f.SetConditionalFormat(sheet, rowRange, []excelize.ConditionalFormatOptions{
		{Type: "formula", Criteria: fmt.Sprintf(`$L2="%s"`, statusUnscheduled), Format: &redFill},
		{Type: "formula", Criteria: `$J2="Yes"`, Format: &derbyFill},
	})
}

func writeBlackoutsSheet(f *excelize.File, blackouts []schedule.BlackoutSlot) error {
	sheet := BlackoutsSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)
	writeHeaders(f, sheet, []string{"Date", "Day", "Time", "Stadium", "Reason"}, st)

	for i, b := range blackouts {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), b.Date.Format(dateLayout))
		f.SetCellValue(sheet, cellRef(2, row), b.Date.Format("Mon"))
		f.SetCellValue(sheet, cellRef(3, row), b.Time)
		f.SetCellValue(sheet, cellRef(4, row), b.Stadium)
		f.SetCellValue(sheet, cellRef(5, row), b.Reason)
		if st.cell != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(5, row), st.cell)
		}
	}

	widths := map[string]float64{"A": 18, "B": 8, "C": 10, "D": 18, "E": 30}
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}
	return nil
}

func writeConflictsSheet(f *excelize.File, result *schedule.Result) error {
	sheet := ConflictsSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	st := newStyles(f)
	writeHeaders(f, sheet, []string{"Match", "Reason", "Detail"}, st)

	for i, c := range result.Conflicts {
		row := i + 2
		f.SetCellValue(sheet, cellRef(1, row), c.MatchID)
		f.SetCellValue(sheet, cellRef(2, row), c.Reason)
		f.SetCellValue(sheet, cellRef(3, row), c.Detail)
		if st.cell != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(3, row), st.cell)
		}
	}

	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "C", 90)
	return nil
}

// writeTeamSheets writes one sheet per team with its dated matches.
func writeTeamSheets(f *excelize.File, teams []string, rows []FixtureRow) error {
	st := newStyles(f)
	names := teamSheetNames(teams)
	for _, team := range teams {
		sheet := names[team]
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("team %s: %w", team, err)
		}
		writeHeaders(f, sheet, teamHeaders, st)

		type teamMatch struct {
			date     time.Time
			time     string
			stadium  string
			opponent string
			homeAway string
			round    int
		}
		var matches []teamMatch
		for _, r := range rows {
			if !r.Scheduled() {
				continue
			}
			if r.Home == team {
				matches = append(matches, teamMatch{r.Date, r.Time, r.Stadium, r.Away, "Home", r.Round})
			} else if r.Away == team {
				matches = append(matches, teamMatch{r.Date, r.Time, r.Stadium, r.Home, "Away", r.Round})
			}
		}
		sort.Slice(matches, func(i, j int) bool {
			if !matches[i].date.Equal(matches[j].date) {
				return matches[i].date.Before(matches[j].date)
			}
			return matches[i].time < matches[j].time
		})

		for i, m := range matches {
			row := i + 2
			f.SetCellValue(sheet, cellRef(1, row), m.date.Format(dateLayout))
			f.SetCellValue(sheet, cellRef(2, row), m.date.Format("Mon"))
			f.SetCellValue(sheet, cellRef(3, row), m.time)
			f.SetCellValue(sheet, cellRef(4, row), m.stadium)
			f.SetCellValue(sheet, cellRef(5, row), m.opponent)
			f.SetCellValue(sheet, cellRef(6, row), m.homeAway)
			f.SetCellValue(sheet, cellRef(7, row), m.round)
			if st.cell != 0 {
				f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(teamHeaders), row), st.cell)
			}
		}

		// Set column widths (sized for Arial 16)
		widths := map[string]float64{"A": 18, "B": 8, "C": 10, "D": 20, "E": 16, "F": 14, "G": 10}
		for col, w := range widths {
			f.SetColWidth(sheet, col, col, w)
		}
	}
	return nil
}

// ReadFixtures parses the Fixtures sheet. Columns are located by header.
func ReadFixtures(f *excelize.File) ([]FixtureRow, error) {
	rows, err := f.GetRows(FixturesSheet)
	if err != nil {
		return nil, fmt.Errorf("reading %s sheet: %w", FixturesSheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s sheet is empty", FixturesSheet)
	}

	col := make(map[string]int)
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	for _, h := range []string{"Match", "Round", "Date", "Home", "Away"} {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("%s sheet is missing the %q column", FixturesSheet, h)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []FixtureRow
	for i, row := range rows[1:] {
		rowNum := i + 2
		if cell(row, "Home") == "" && cell(row, "Away") == "" {
			continue
		}

		r := FixtureRow{
			Row:     rowNum,
			MatchID: cell(row, "Match"),
			Time:    cell(row, "Time"),
			Stadium: cell(row, "Stadium"),
			Home:    cell(row, "Home"),
			Away:    cell(row, "Away"),
			Derby:   strings.EqualFold(cell(row, "Derby"), "yes"),
			Status:  cell(row, "Status"),
		}
		if r.Round, err = atoiOrZero(cell(row, "Round")); err != nil {
			return nil, fmt.Errorf("row %d: round: %w", rowNum, err)
		}
		if r.Leg, err = atoiOrZero(cell(row, "Leg")); err != nil {
			return nil, fmt.Errorf("row %d: leg: %w", rowNum, err)
		}
		if r.Priority, err = atoiOrZero(cell(row, "Priority")); err != nil {
			return nil, fmt.Errorf("row %d: priority: %w", rowNum, err)
		}
		if s := cell(row, "Date"); s != "" {
			if r.Date, err = time.Parse(dateLayout, s); err != nil {
				return nil, fmt.Errorf("row %d: invalid date %q", rowNum, s)
			}
		}
		if r.HomeScore, err = optionalScore(cell(row, "Home Score")); err != nil {
			return nil, fmt.Errorf("row %d: home score: %w", rowNum, err)
		}
		if r.AwayScore, err = optionalScore(cell(row, "Away Score")); err != nil {
			return nil, fmt.Errorf("row %d: away score: %w", rowNum, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func optionalScore(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative score %d", n)
	}
	return &n, nil
}

// Results returns the played matches of rows in sheet order.
func Results(rows []FixtureRow) []standings.Result {
	var out []standings.Result
	for _, r := range rows {
		if !r.Played() {
			continue
		}
		out = append(out, standings.Result{
			MatchID:   r.MatchID,
			Home:      r.Home,
			Away:      r.Away,
			HomeScore: *r.HomeScore,
			AwayScore: *r.AwayScore,
		})
	}
	return out
}

// UpdateTeamSheets rebuilds every team sheet from the Fixtures sheet, so
// hand edits to the fixture list carry through.
func UpdateTeamSheets(path string, t *tournament.Tournament) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	rows, err := ReadFixtures(f)
	if err != nil {
		return err
	}

	teams := t.TeamIDs()
	for _, sheet := range teamSheetNames(teams) {
		if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
			if err := f.DeleteSheet(sheet); err != nil {
				return fmt.Errorf("removing sheet %s: %w", sheet, err)
			}
		}
	}
	if err := writeTeamSheets(f, teams, rows); err != nil {
		return fmt.Errorf("writing team sheets: %w", err)
	}
	return f.Save()
}

// WriteStandings writes (or replaces) the Standings sheet.
func WriteStandings(path string, table []standings.Row) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := StandingsSheet
	if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
		if err := f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("removing old standings: %w", err)
		}
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	st := newStyles(f)
	headers := []string{"Pos", "Team", "P", "W", "D", "L", "GF", "GA", "GD", "Pts", "Form"}
	writeHeaders(f, sheet, headers, st)
	for i, r := range table {
		row := i + 2
		values := []any{r.Position, r.Team, r.Played, r.Won, r.Drawn, r.Lost,
			r.GoalsFor, r.GoalsAgainst, r.GoalDiff, r.Points, strings.Join(r.Form, "")}
		for c, v := range values {
			f.SetCellValue(sheet, cellRef(c+1, row), v)
		}
		if st.center != 0 {
			f.SetCellStyle(sheet, cellRef(1, row), cellRef(len(headers), row), st.center)
		}
	}
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 18)
	f.SetColWidth(sheet, "C", "J", 8)
	f.SetColWidth(sheet, "K", "K", 12)

	return f.Save()
}

// maxSheetName is the longest sheet name Excel accepts, in characters.
const maxSheetName = 31

// Sheets a team sheet must never reuse. Sheet1 is the default sheet that
// Generate removes once everything else is written.
var reservedSheets = []string{FixturesSheet, BlackoutsSheet, ConflictsSheet, StandingsSheet, "Sheet1"}

// teamSheetNames assigns every team a sheet name that is unique ignoring
// case and clear of the workbook's own sheets. Clashes get a " (n)" suffix
// in team order, so the same team list always maps to the same names.
func teamSheetNames(teams []string) map[string]string {
	taken := make(map[string]bool, len(teams)+len(reservedSheets))
	for _, s := range reservedSheets {
		taken[strings.ToLower(s)] = true
	}

	names := make(map[string]string, len(teams))
	for _, team := range teams {
		base := sheetName(team)
		name := base
		for n := 2; taken[strings.ToLower(name)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			name = truncate(base, maxSheetName-len(suffix)) + suffix
		}
		taken[strings.ToLower(name)] = true
		names[team] = name
	}
	return names
}

// sheetName makes a team id safe for use as a sheet name.
func sheetName(team string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, team)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Team"
	}
	return truncate(name, maxSheetName)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func cellRef(col, row int) string {
	return fmt.Sprintf("%s%d", colLetter(col), row)
}

func colLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
