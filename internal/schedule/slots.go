package schedule

import (
	"sort"
	"time"

	"github.com/derekprior/fixtures/internal/config"
)

// Slot represents an available kick-off: a date, time slot and stadium.
type Slot struct {
	Date     time.Time
	Time     string // "15:00", "19:45", etc.
	End      string
	Stadium  string
	Priority int
}

// BlackoutSlot represents a slot that is unavailable with a reason.
type BlackoutSlot struct {
	Date    time.Time
	Time    string
	Stadium string
	Reason  string
}

type restrictionKey struct {
	stadium string
	date    time.Time
	time    string
}

type stadiumDateKey struct {
	stadium string
	date    time.Time
}

// restrictionIndex looks up stadium restrictions by date and start time.
type restrictionIndex struct {
	partial map[restrictionKey]string
	fullDay map[stadiumDateKey]string
}

func newRestrictionIndex(cfg *config.Config) restrictionIndex {
	idx := restrictionIndex{
		partial: make(map[restrictionKey]string),
		fullDay: make(map[stadiumDateKey]string),
	}
	for _, s := range cfg.Stadiums {
		for _, r := range s.Restrictions {
			for _, rd := range r.Dates() {
				if len(r.Times) == 0 {
					idx.fullDay[stadiumDateKey{s.ID, rd}] = r.Reason
					continue
				}
				for _, t := range r.Times {
					idx.partial[restrictionKey{s.ID, rd, t}] = r.Reason
				}
			}
		}
	}
	return idx
}

func (idx restrictionIndex) blocked(stadium string, date time.Time, start string) (string, bool) {
	if reason, ok := idx.fullDay[stadiumDateKey{stadium, date}]; ok {
		return reason, true
	}
	reason, ok := idx.partial[restrictionKey{stadium, date, start}]
	return reason, ok
}

func blackoutDates(cfg *config.Config) map[time.Time]string {
	m := make(map[time.Time]string)
	for _, b := range cfg.Tournament.BlackoutDates {
		m[b.Date.Time] = b.Reason
	}
	return m
}

// slotsOn returns the time slots a stadium offers on a given date.
func slotsOn(cfg *config.Config, s config.Stadium, d time.Time) []config.TimeSlot {
	var out []config.TimeSlot
	for _, ts := range cfg.SlotsFor(s) {
		if wd, ok := ts.Weekday(); ok && wd == d.Weekday() {
			out = append(out, ts)
		}
	}
	return out
}

// GenerateSlots builds all available (date, time, stadium) tuples between
// from and to inclusive, excluding blackout dates and stadium restrictions.
func GenerateSlots(cfg *config.Config, from, to time.Time) []Slot {
	blackouts := blackoutDates(cfg)
	restrictions := newRestrictionIndex(cfg)

	var slots []Slot
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if _, ok := blackouts[d]; ok {
			continue
		}
		for _, s := range cfg.Stadiums {
			for _, ts := range slotsOn(cfg, s, d) {
				if _, ok := restrictions.blocked(s.ID, d, ts.Start); ok {
					continue
				}
				slots = append(slots, Slot{
					Date:     d,
					Time:     ts.Start,
					End:      ts.End,
					Stadium:  s.ID,
					Priority: ts.Priority,
				})
			}
		}
	}

	sortSlots(slots)
	return slots
}

// GenerateBlackoutSlots returns all slots between from and to that are
// blacked out, either tournament-wide or by a stadium restriction.
func GenerateBlackoutSlots(cfg *config.Config, from, to time.Time) []BlackoutSlot {
	blackouts := blackoutDates(cfg)
	restrictions := newRestrictionIndex(cfg)

	var out []BlackoutSlot
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dayReason, dayBlocked := blackouts[d]
		for _, s := range cfg.Stadiums {
			for _, ts := range slotsOn(cfg, s, d) {
				reason, ok := dayReason, dayBlocked
				if !ok {
					reason, ok = restrictions.blocked(s.ID, d, ts.Start)
				}
				if !ok {
					continue
				}
				out = append(out, BlackoutSlot{Date: d, Time: ts.Start, Stadium: s.ID, Reason: reason})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].Stadium < out[j].Stadium
	})
	return out
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Date.Equal(slots[j].Date) {
			return slots[i].Date.Before(slots[j].Date)
		}
		if slots[i].Time != slots[j].Time {
			return slots[i].Time < slots[j].Time
		}
		return slots[i].Stadium < slots[j].Stadium
	})
}
