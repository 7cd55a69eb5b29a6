// Package pipeline runs fixture generation end to end: generate, validate,
// optimize and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/derekprior/fixtures/internal/fixture"
	"github.com/derekprior/fixtures/internal/logging"
	"github.com/derekprior/fixtures/internal/schedule"
	"github.com/derekprior/fixtures/internal/store"
	"github.com/derekprior/fixtures/internal/tournament"
)

// ErrInvalidFixtures is returned when generated rounds fail validation.
var ErrInvalidFixtures = errors.New("generated fixtures are invalid")

// Store is the persistence the pipeline writes to.
type Store interface {
	SaveTournament(ctx context.Context, rec store.TournamentRecord) error
	SaveFixtures(ctx context.Context, tournamentID string, records []store.MatchRecord) error
}

// Pipeline wires the generator, optimizer and store. Store and Logger are
// both optional.
type Pipeline struct {
	Store  Store
	Logger *slog.Logger
}

// Report collects what each stage produced. Fields for stages that did not
// run are left empty.
type Report struct {
	TournamentID string             `json:"tournament_id"`
	Rounds       []fixture.Round    `json:"rounds"`
	Validation   fixture.Validation `json:"validation"`
	Result       *schedule.Result   `json:"result,omitempty"`
	Persisted    bool               `json:"persisted"`
}

// Preview generates and validates rounds without scheduling them.
func (p *Pipeline) Preview(ctx context.Context, t *tournament.Tournament, opts fixture.Options) (*Report, error) {
	opts.PreviewOnly = true
	return p.Run(ctx, t, opts, time.Time{})
}

// Run executes the pipeline. A zero start uses the tournament start date.
// When validation fails the report is returned along with an error
// wrapping ErrInvalidFixtures.
func (p *Pipeline) Run(ctx context.Context, t *tournament.Tournament, opts fixture.Options, start time.Time) (*Report, error) {
	report := &Report{TournamentID: t.ID()}
	log := logging.ForTournament(p.Logger, t.ID())

	done := logging.Stage(log, "generate")
	gen := fixture.NewGenerator(t, opts)
	rounds, err := gen.GenerateRoundRobin()
	if err != nil {
		logging.Error(log, "generation failed", err)
		return report, fmt.Errorf("generating fixtures: %w", err)
	}
	report.Rounds = rounds
	done(logging.FieldCount, fixture.Count(rounds))

	done = logging.Stage(log, "validate")
	report.Validation = gen.ValidateFixtures()
	for _, w := range report.Validation.Warnings {
		logging.Warn(log, "fixture warning", logging.FieldWarning, w)
	}
	if !report.Validation.Valid {
		err := fmt.Errorf("%w: %s", ErrInvalidFixtures, strings.Join(report.Validation.Errors, "; "))
		logging.Error(log, "validation failed", err)
		return report, err
	}
	done(logging.FieldWarnings, len(report.Validation.Warnings))

	if opts.PreviewOnly {
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if start.IsZero() {
		start = t.Config().Tournament.StartDate.Time
	}
	done = logging.Stage(log, "optimize")
	result, err := schedule.Optimize(ctx, t, rounds, start, schedule.OptionsFrom(opts, t.Config().Options.Attempts))
	if err != nil {
		logging.Error(log, "optimization failed", err)
		return report, fmt.Errorf("optimizing schedule: %w", err)
	}
	report.Result = result
	done(
		logging.FieldScheduled, len(result.Scheduled),
		logging.FieldConflicts, len(result.Conflicts),
		logging.FieldScore, result.Score,
		logging.FieldAttempt, result.Attempt,
	)

	if p.Store == nil {
		return report, nil
	}

	done = logging.Stage(log, "persist")
	if err := p.persist(ctx, t, result); err != nil {
		logging.Error(log, "persist failed", err)
		return report, err
	}
	report.Persisted = true
	done(logging.FieldCount, len(result.Scheduled)+len(result.Unscheduled))

	return report, nil
}

func (p *Pipeline) persist(ctx context.Context, t *tournament.Tournament, result *schedule.Result) error {
	pts := t.Config().StandingsPoints()
	rec := store.TournamentRecord{
		ID:      t.ID(),
		Name:    t.Name(),
		TeamIDs: t.TeamIDs(),
		Win:     pts.Win,
		Draw:    pts.Draw,
		Loss:    pts.Loss,
	}
	if err := p.Store.SaveTournament(ctx, rec); err != nil {
		return fmt.Errorf("persisting tournament: %w", err)
	}
	if err := p.Store.SaveFixtures(ctx, t.ID(), store.RecordsFromResult(t.ID(), result)); err != nil {
		return fmt.Errorf("persisting fixtures: %w", err)
	}
	return nil
}
