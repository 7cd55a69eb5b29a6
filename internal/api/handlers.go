// Package api serves fixture generation, match results and standings over
// JSON HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/derekprior/fixtures/internal/config"
	"github.com/derekprior/fixtures/internal/fixture"
	"github.com/derekprior/fixtures/internal/logging"
	"github.com/derekprior/fixtures/internal/pipeline"
	"github.com/derekprior/fixtures/internal/schedule"
	"github.com/derekprior/fixtures/internal/standings"
	"github.com/derekprior/fixtures/internal/store"
	"github.com/derekprior/fixtures/internal/tournament"
)

// Store is everything the handlers read from and write to.
type Store interface {
	pipeline.Store
	Tournament(ctx context.Context, id string) (*store.TournamentRecord, error)
	ListMatches(ctx context.Context, tournamentID string) ([]store.MatchRecord, error)
	RecordResult(ctx context.Context, id string, home, away int) (*store.MatchRecord, error)
	SetStatus(ctx context.Context, id, status string) error
	Results(ctx context.Context, tournamentID string) ([]standings.Result, error)
}

// Handler contains dependencies for the route handlers
type Handler struct {
	Store  Store
	Logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewHandler returns a Handler backed by st.
func NewHandler(st Store, logger *slog.Logger) *Handler {
	return &Handler{Store: st, Logger: logger, inFlight: make(map[string]bool)}
}

// Request is the body of the fixture endpoints. Options default to the
// config's options; StartDate defaults to the tournament start.
type Request struct {
	Config    config.Config    `json:"config"`
	Options   *fixture.Options `json:"options"`
	StartDate *config.Date     `json:"start_date"`
}

// ResultInput is the body of the match result endpoint.
type ResultInput struct {
	HomeScore *int `json:"home_score" binding:"required"`
	AwayScore *int `json:"away_score" binding:"required"`
}

// StatusInput is the body of the match status endpoint.
type StatusInput struct {
	Status string `json:"status" binding:"required"`
}

// acquire marks a tournament as generating. It returns false when a
// generation for the same tournament is already running.
func (h *Handler) acquire(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFlight == nil {
		h.inFlight = make(map[string]bool)
	}
	if h.inFlight[id] {
		return false
	}
	h.inFlight[id] = true
	return true
}

func (h *Handler) release(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, id)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PreviewFixtures generates and validates rounds without scheduling them.
func (h *Handler) PreviewFixtures(c *gin.Context) {
	h.generate(c, true)
}

// GenerateFixtures runs the full pipeline and stores the schedule.
func (h *Handler) GenerateFixtures(c *gin.Context) {
	h.generate(c, false)
}

func (h *Handler) generate(c *gin.Context, preview bool) {
	id := c.Param("id")

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Config.Tournament.ID == "" {
		req.Config.Tournament.ID = id
	}
	if req.Config.Tournament.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "config tournament id " + req.Config.Tournament.ID + " does not match " + id})
		return
	}
	if err := req.Config.Normalize(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	t, err := tournament.New(&req.Config)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	opts := fixture.OptionsFromConfig(req.Config.Options)
	if req.Options != nil {
		opts = *req.Options
	}
	var start time.Time
	if req.StartDate != nil {
		start = req.StartDate.Time
	}

	if !h.acquire(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "fixture generation already running for " + id})
		return
	}
	defer h.release(id)

	p := &pipeline.Pipeline{Store: h.Store, Logger: h.Logger}

	var report *pipeline.Report
	if preview {
		report, err = p.Preview(c.Request.Context(), t, opts)
	} else {
		report, err = p.Run(c.Request.Context(), t, opts, start)
	}
	switch {
	case errors.Is(err, pipeline.ErrInvalidFixtures):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "report": report})
		return
	case errors.Is(err, schedule.ErrNoSlots):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		logging.Error(h.Logger, "fixture generation failed", err, logging.FieldTournament, id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusCreated
	if preview {
		status = http.StatusOK
	}
	c.JSON(status, report)
}

// ListMatches returns the stored matches of a tournament.
func (h *Handler) ListMatches(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.Store.Tournament(c.Request.Context(), id); err != nil {
		h.storeError(c, err)
		return
	}
	matches, err := h.Store.ListMatches(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// RecordResult stores the final score of a match.
func (h *Handler) RecordResult(c *gin.Context) {
	var input ResultInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.Store.RecordResult(c.Request.Context(), c.Param("matchID"), *input.HomeScore, *input.AwayScore)
	if err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// SetStatus moves a match between scheduled, unscheduled and postponed.
func (h *Handler) SetStatus(c *gin.Context) {
	var input StatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("matchID")
	if err := h.Store.SetStatus(c.Request.Context(), id, input.Status); err != nil {
		h.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": input.Status})
}

// Standings computes the table from stored results. The win, draw and
// loss query parameters override the tournament's points.
func (h *Handler) Standings(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.Store.Tournament(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}

	points := rec.Points()
	for key, dst := range map[string]*int{"win": &points.Win, "draw": &points.Draw, "loss": &points.Loss} {
		raw, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key + " points: " + raw})
			return
		}
		*dst = n
	}

	results, err := h.Store.Results(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, err)
		return
	}
	rows, warnings := standings.ComputeWithWarnings(rec.TeamIDs, results, points)
	c.JSON(http.StatusOK, gin.H{"standings": rows, "warnings": warnings, "points": points})
}

func (h *Handler) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidScore), errors.Is(err, store.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.Error(h.Logger, "store error", err, logging.FieldPath, c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
