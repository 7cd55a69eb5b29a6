// Package store persists tournaments and their scheduled matches with gorm,
// on postgres when the DSN is a postgres URL and sqlite otherwise.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/derekprior/fixtures/internal/config"
	"github.com/derekprior/fixtures/internal/schedule"
	"github.com/derekprior/fixtures/internal/standings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidScore  = errors.New("scores must be non-negative")
	ErrInvalidStatus = errors.New("invalid match status")
)

// Match statuses.
const (
	StatusScheduled   = "scheduled"
	StatusUnscheduled = "unscheduled"
	StatusCompleted   = "completed"
	StatusPostponed   = "postponed"
)

// TournamentRecord represents the tournaments table
type TournamentRecord struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `json:"name"`
	TeamIDs   []string  `gorm:"serializer:json;not null" json:"team_ids"` // config order
	Win       int       `json:"win"`
	Draw      int       `json:"draw"`
	Loss      int       `json:"loss"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TournamentRecord) TableName() string { return "tournaments" }

// Points returns the stored standings points.
func (r TournamentRecord) Points() config.Points {
	return config.Points{Win: r.Win, Draw: r.Draw, Loss: r.Loss}
}

// MatchRecord represents the matches table
type MatchRecord struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	TournamentID      string     `gorm:"index;not null;size:64" json:"tournament_id"`
	MatchKey          string     `gorm:"not null" json:"match_key"`
	HomeTeamID        string     `gorm:"not null" json:"home_team_id"`
	AwayTeamID        string     `gorm:"not null" json:"away_team_id"`
	Date              *time.Time `json:"date"`
	Time              string     `json:"time"`
	Round             int        `json:"round"`
	Leg               int        `json:"leg"`
	Status            string     `gorm:"not null;default:scheduled" json:"status"`
	VenueID           string     `json:"venue_id"`
	BroadcastPriority int        `json:"broadcast_priority"`
	Derby             bool       `json:"derby"`
	HomeScore         *int       `json:"home_score"`
	AwayScore         *int       `json:"away_score"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (MatchRecord) TableName() string { return "matches" }

// BeforeCreate assigns a uuid when none is set.
func (m *MatchRecord) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Store wraps a gorm connection.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the schema. postgres:// and
// postgresql:// URLs use postgres; anything else is a sqlite path.
func Open(dsn string) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return New(db)
}

// New wraps an open connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&TournamentRecord{}, &MatchRecord{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveTournament creates or updates a tournament's team list and points.
func (s *Store) SaveTournament(ctx context.Context, rec TournamentRecord) error {
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("saving tournament %s: %w", rec.ID, err)
	}
	return nil
}

// Tournament loads a tournament by id.
func (s *Store) Tournament(ctx context.Context, id string) (*TournamentRecord, error) {
	var rec TournamentRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading tournament %s: %w", id, err)
	}
	return &rec, nil
}

// SaveFixtures replaces every match of a tournament in one transaction.
func (s *Store) SaveFixtures(ctx context.Context, tournamentID string, records []MatchRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&MatchRecord{}).Error; err != nil {
			return fmt.Errorf("clearing matches of %s: %w", tournamentID, err)
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].TournamentID = tournamentID
		}
		if err := tx.CreateInBatches(records, 100).Error; err != nil {
			return fmt.Errorf("saving matches of %s: %w", tournamentID, err)
		}
		return nil
	})
}

// ListMatches returns a tournament's matches by round, date and time.
func (s *Store) ListMatches(ctx context.Context, tournamentID string) ([]MatchRecord, error) {
	var records []MatchRecord
	err := s.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order(`round, "date", "time", match_key`).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("listing matches of %s: %w", tournamentID, err)
	}
	return records, nil
}

// RecordResult stores a final score and marks the match completed.
func (s *Store) RecordResult(ctx context.Context, id string, home, away int) (*MatchRecord, error) {
	if home < 0 || away < 0 {
		return nil, ErrInvalidScore
	}

	var rec MatchRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		rec.HomeScore = &home
		rec.AwayScore = &away
		rec.Status = StatusCompleted
		return tx.Save(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("recording result for %s: %w", id, err)
	}
	return &rec, nil
}

// SetStatus changes a match status, e.g. to postponed. Completing a match
// goes through RecordResult.
func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	switch status {
	case StatusScheduled, StatusUnscheduled, StatusPostponed:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	res := s.db.WithContext(ctx).Model(&MatchRecord{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("updating status of %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return nil
}

// Results returns the completed matches of a tournament in playing order.
func (s *Store) Results(ctx context.Context, tournamentID string) ([]standings.Result, error) {
	var records []MatchRecord
	err := s.db.WithContext(ctx).
		Where("tournament_id = ? AND status = ?", tournamentID, StatusCompleted).
		Order(`"date", "time", round, match_key`).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("loading results of %s: %w", tournamentID, err)
	}

	results := make([]standings.Result, 0, len(records))
	for _, r := range records {
		if r.HomeScore == nil || r.AwayScore == nil {
			continue
		}
		results = append(results, standings.Result{
			MatchID:   r.ID,
			Home:      r.HomeTeamID,
			Away:      r.AwayTeamID,
			HomeScore: *r.HomeScore,
			AwayScore: *r.AwayScore,
		})
	}
	return results, nil
}

// RecordsFromResult converts optimizer output into match records, scheduled
// matches first.
func RecordsFromResult(tournamentID string, res *schedule.Result) []MatchRecord {
	records := make([]MatchRecord, 0, len(res.Scheduled)+len(res.Unscheduled))
	for _, sm := range res.Scheduled {
		date := sm.Date
		records = append(records, MatchRecord{
			ID:                uuid.NewString(),
			TournamentID:      tournamentID,
			MatchKey:          sm.ID,
			HomeTeamID:        sm.Home,
			AwayTeamID:        sm.Away,
			Date:              &date,
			Time:              sm.Time,
			Round:             sm.Round,
			Leg:               sm.Leg,
			Status:            StatusScheduled,
			VenueID:           sm.Stadium,
			BroadcastPriority: sm.BroadcastPriority,
			Derby:             sm.Derby,
		})
	}
	for _, m := range res.Unscheduled {
		records = append(records, MatchRecord{
			ID:                uuid.NewString(),
			TournamentID:      tournamentID,
			MatchKey:          m.ID,
			HomeTeamID:        m.Home,
			AwayTeamID:        m.Away,
			Round:             m.Round,
			Leg:               m.Leg,
			Status:            StatusUnscheduled,
			BroadcastPriority: m.BroadcastPriority,
			Derby:             m.Derby,
		})
	}
	return records
}
