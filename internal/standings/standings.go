// Package standings builds a league table from played matches.
package standings

import (
	"fmt"
	"sort"

	"github.com/derekprior/fixtures/internal/config"
)

const formLength = 5

// Result is the final score of a played match.
type Result struct {
	MatchID   string `json:"match_id"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
}

// Row is one team's line in the table.
type Row struct {
	Position     int      `json:"position"`
	Team         string   `json:"team"`
	Played       int      `json:"played"`
	Won          int      `json:"won"`
	Drawn        int      `json:"drawn"`
	Lost         int      `json:"lost"`
	GoalsFor     int      `json:"goals_for"`
	GoalsAgainst int      `json:"goals_against"`
	GoalDiff     int      `json:"goal_diff"`
	Points       int      `json:"points"`
	Form         []string `json:"form"`
}

// Compute returns the table for teams, ordered by points, goal difference,
// goals for, head-to-head points within the tied group and finally team id.
func Compute(teams []string, results []Result, points config.Points) []Row {
	rows, _ := ComputeWithWarnings(teams, results, points)
	return rows
}

// ComputeWithWarnings is Compute, also reporting results that were skipped
// because they name a team outside the table.
func ComputeWithWarnings(teams []string, results []Result, points config.Points) ([]Row, []string) {
	byTeam := make(map[string]*Row, len(teams))
	rows := make([]*Row, 0, len(teams))
	for _, id := range teams {
		if _, dup := byTeam[id]; dup {
			continue
		}
		r := &Row{Team: id, Form: []string{}}
		byTeam[id] = r
		rows = append(rows, r)
	}

	var warnings []string
	var counted []Result
	for _, res := range results {
		home, okH := byTeam[res.Home]
		away, okA := byTeam[res.Away]
		if !okH || !okA || res.Home == res.Away {
			warnings = append(warnings, fmt.Sprintf("ignoring result %s: %s vs %s is not a valid pairing", res.MatchID, res.Home, res.Away))
			continue
		}
		counted = append(counted, res)
		record(home, res.HomeScore, res.AwayScore, points)
		record(away, res.AwayScore, res.HomeScore, points)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return ahead(rows[i], rows[j])
	})
	rows = breakTies(rows, counted, points)

	out := make([]Row, len(rows))
	for i, r := range rows {
		r.Position = i + 1
		out[i] = *r
	}
	return out, warnings
}

func record(r *Row, scored, conceded int, points config.Points) {
	r.Played++
	r.GoalsFor += scored
	r.GoalsAgainst += conceded
	r.GoalDiff = r.GoalsFor - r.GoalsAgainst

	var outcome string
	switch {
	case scored > conceded:
		r.Won++
		r.Points += points.Win
		outcome = "W"
	case scored == conceded:
		r.Drawn++
		r.Points += points.Draw
		outcome = "D"
	default:
		r.Lost++
		r.Points += points.Loss
		outcome = "L"
	}

	r.Form = append(r.Form, outcome)
	if len(r.Form) > formLength {
		r.Form = r.Form[len(r.Form)-formLength:]
	}
}

// ahead orders by the overall criteria only.
func ahead(a, b *Row) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.GoalDiff != b.GoalDiff {
		return a.GoalDiff > b.GoalDiff
	}
	if a.GoalsFor != b.GoalsFor {
		return a.GoalsFor > b.GoalsFor
	}
	return a.Team < b.Team
}

func level(a, b *Row) bool {
	return a.Points == b.Points && a.GoalDiff == b.GoalDiff && a.GoalsFor == b.GoalsFor
}

// breakTies reorders each group of rows level on overall criteria by the
// points they took off each other, falling back to team id.
func breakTies(rows []*Row, results []Result, points config.Points) []*Row {
	for start := 0; start < len(rows); {
		end := start + 1
		for end < len(rows) && level(rows[start], rows[end]) {
			end++
		}
		if end-start > 1 {
			group := rows[start:end]
			h2h := headToHead(group, results, points)
			sort.SliceStable(group, func(i, j int) bool {
				pi, pj := h2h[group[i].Team], h2h[group[j].Team]
				if pi != pj {
					return pi > pj
				}
				return group[i].Team < group[j].Team
			})
		}
		start = end
	}
	return rows
}

func headToHead(group []*Row, results []Result, points config.Points) map[string]int {
	in := make(map[string]bool, len(group))
	for _, r := range group {
		in[r.Team] = true
	}
	pts := make(map[string]int, len(group))
	for _, res := range results {
		if !in[res.Home] || !in[res.Away] {
			continue
		}
		switch {
		case res.HomeScore > res.AwayScore:
			pts[res.Home] += points.Win
			pts[res.Away] += points.Loss
		case res.HomeScore < res.AwayScore:
			pts[res.Away] += points.Win
			pts[res.Home] += points.Loss
		default:
			pts[res.Home] += points.Draw
			pts[res.Away] += points.Draw
		}
	}
	return pts
}
