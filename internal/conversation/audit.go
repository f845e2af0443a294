package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ashaai/asha/internal/log"
)

// AuditDB is the database slice the audit log needs.
type AuditDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Record is one completed turn as persisted for diagnostics. The in-memory
// window stays authoritative for prompting; this table is write-only from
// the pipeline's perspective.
type Record struct {
	SessionID     string
	UserQuery     string
	ReframedQuery string
	Intent        string
	BiasDetected  bool
	BiasCategory  string
	Degraded      bool
	AssistantText string
	DocumentsUsed int
	Elapsed       time.Duration
}

// Audit persists completed turns to the turn_log table.
type Audit struct {
	db     AuditDB
	logger log.Logger
}

// NewAudit creates an Audit. A nil db disables persistence; Record becomes
// a no-op so the pipeline does not special-case CLI runs without a database.
func NewAudit(db AuditDB, logger log.Logger) *Audit {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Audit{db: db, logger: logger}
}

// Record inserts one turn. Best-effort: failures are logged, never returned,
// because audit persistence must not fail a served turn.
func (a *Audit) Record(ctx context.Context, rec Record) {
	if a == nil || a.db == nil {
		return
	}

	var reframed, category any
	if rec.ReframedQuery != "" && rec.ReframedQuery != rec.UserQuery {
		reframed = rec.ReframedQuery
	}
	if rec.BiasCategory != "" {
		category = rec.BiasCategory
	}

	_, err := a.db.Exec(ctx, `
		INSERT INTO turn_log (session_id, user_query, reframed_query, intent,
			bias_detected, bias_category, degraded, assistant_text,
			documents_used, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.SessionID, rec.UserQuery, reframed, rec.Intent,
		rec.BiasDetected, category, rec.Degraded, rec.AssistantText,
		rec.DocumentsUsed, rec.Elapsed.Milliseconds())
	if err != nil {
		a.logger.Warn("turn audit insert failed",
			"session_id", rec.SessionID,
			"error", fmt.Errorf("inserting turn_log row: %w", err))
	}
}
