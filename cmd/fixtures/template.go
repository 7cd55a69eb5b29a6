package main

const configTemplate = `# Tournament Configuration
# ========================
# This file defines the teams, venues and rules used to generate and
# schedule a round-robin fixture list.

tournament:
  id: county-league
  name: "County League"
  format: round_robin

  # 1 = single round robin, 2 = home and away.
  legs: 2

  start_date: "2026-08-01"
  # Matches that cannot be placed before end_date are reported as
  # unscheduled. Defaults to one year after start_date.
  end_date: "2027-05-31"

  # Blackout dates are full days where no match is played at any stadium.
  blackout_dates:
    - date: "2026-12-25"
      reason: "Christmas Day"
    - date: "2026-12-26"
      reason: "Boxing Day"

  # Rivalries that always count as derbies. Teams sharing a county or
  # city are treated as derbies too.
  derbies:
    - [ROV, UTD]

teams:
  - id: ROV
    name: Rovers
    city: Bristol
    home_stadium: park
  - id: UTD
    name: United
    city: Bristol
    home_stadium: park
  - id: ATH
    name: Athletic
    county: Kent
    home_stadium: road
  - id: WAN
    name: Wanderers
    county: Kent
  - id: CIT
    name: City
  - id: ALB
    name: Albion

# Default weekly time slots. A stadium may override them with its own
# time_slots. Higher priority slots are offered to derbies and run-in
# matches first.
time_slots:
  - day: saturday
    start: "15:00"
    end: "17:00"
    priority: 5
  - day: saturday
    start: "17:30"
    end: "19:30"
    priority: 7
  - day: sunday
    start: "16:30"
    end: "18:30"
    priority: 10

# Stadiums available for scheduling.
#
# Restrictions block a stadium for a given date or date range.
# If 'times' is omitted or empty, the stadium is blocked for the full day.
# If 'times' is provided, only those kick-off times are blocked.
#
# Single date, specific times only:
#   - date: "2026-09-12"
#     times: ["15:00"]
#     reason: "Concert"
#
# Date range (blocks every day in the range):
#   - start_date: "2027-03-01"
#     end_date: "2027-03-14"
#     reason: "Pitch relaying"
stadiums:
  - id: park
    name: Park Ground
    capacity: 12000
    restrictions:
      - date: "2026-09-12"
        times: ["15:00"]
        reason: "Concert"
  - id: road
    name: Road End
    capacity: 4000
    time_slots:
      - day: wednesday
        start: "19:45"
        end: "21:45"
        priority: 4
  - id: lane
    name: Lane Stadium
    capacity: 2500

# Scheduling rules. Set a value to 0 to disable it.
rules:
  max_matches_per_day: 3    # across all stadiums
  min_rest_days: 3          # days between a team's matches
  derby_min_days: 28        # days between a team's derbies
  min_capacity: 0           # smallest stadium any match may use
  derby_min_capacity: 10000 # smallest stadium a derby may use
  sequential_rounds: true   # round N+1 starts after round N ends

options:
  randomize_home_away: false
  balance_home_away: true
  respect_derbies: true
  apply_constraints: true
  preview_only: false
  seed: 0
  attempts: 20              # optimizer attempts, best one wins

# Points awarded in the standings table.
points:
  win: 3
  draw: 1
  loss: 0
`
