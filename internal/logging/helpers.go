package logging

import (
	"log/slog"
	"time"
)

// ForTournament scopes logger to one tournament. A nil logger stays nil so
// callers can pass the result straight to the helpers below.
func ForTournament(logger *slog.Logger, id string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(FieldTournament, id)
}

func Info(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

func Warn(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// Error logs msg at error level with err under FieldError.
func Error(logger *slog.Logger, msg string, err error, args ...any) {
	if logger == nil {
		return
	}
	if err != nil {
		args = append(args, FieldError, err)
	}
	logger.Error(msg, args...)
}

// Stage logs the start of a pipeline stage and returns a func that logs
// its end with the elapsed milliseconds and any extra fields.
func Stage(logger *slog.Logger, name string) func(args ...any) {
	if logger == nil {
		return func(...any) {}
	}
	started := time.Now()
	logger.Info("stage started", FieldStage, name)
	return func(args ...any) {
		args = append(args, FieldStage, name, FieldDurationMS, time.Since(started).Milliseconds())
		logger.Info("stage finished", args...)
	}
}
