package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.AuditLogRepository = (*AuditLogRepo)(nil)

// AuditLogRepo bitácora de orquestación sobre PostgreSQL (append-only).
type AuditLogRepo struct {
	q Querier
}

// NewAuditLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditLogRepository(q Querier) *AuditLogRepo {
	return &AuditLogRepo{q: q}
}

// Append inserta una entrada de bitácora.
func (r *AuditLogRepo) Append(ev *entity.AuditEvent) error {
	query := `
		INSERT INTO transfer_audit_log
			(transfer_id, event_type, actor, state_before, state_after, detail, duration_ms, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, now())`
	_, err := r.q.Exec(context.Background(), query,
		ev.TransferID, ev.EventType, ev.Actor, ev.StateBefore, ev.StateAfter,
		ev.Detail, ev.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
