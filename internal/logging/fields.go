package logging

// Common structured log field keys to keep logs searchable/consistent.
const (
	FieldTournament = "tournament"
	FieldStage      = "stage"
	FieldPath       = "path"
	FieldMethod     = "method"
	FieldStatusCode = "status_code"
	FieldCount      = "count"
	FieldScheduled  = "scheduled"
	FieldConflicts  = "conflicts"
	FieldScore      = "score"
	FieldAttempt    = "attempt"
	FieldDurationMS = "duration_ms"
	FieldWarning    = "warning"
	FieldWarnings   = "warnings"
	FieldError      = "error"
)
