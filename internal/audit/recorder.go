package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/condoledger/condoledger/internal/platform/db"
	"github.com/condoledger/condoledger/internal/shared"
)

// Recorder persists audit records. It satisfies shared.AuditRecorder for
// every state-changing service in the module.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder builds the Postgres-backed recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record appends one audit row. Meta is stored as JSONB.
func (r *Recorder) Record(ctx context.Context, log shared.AuditLog) error {
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (org_id, actor_id, action, entity, entity_id, meta, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.OrgID, log.ActorID, log.Action, log.Entity, log.EntityID, meta, log.At)
	return db.Translate(err)
}
