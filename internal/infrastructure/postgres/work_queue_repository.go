package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.WorkQueueRepository = (*WorkQueueRepo)(nil)

// WorkQueueRepo inserción durable de trabajos diferidos sobre PostgreSQL.
type WorkQueueRepo struct {
	q Querier
}

// NewWorkQueueRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWorkQueueRepository(q Querier) *WorkQueueRepo {
	return &WorkQueueRepo{q: q}
}

// Insert encola el trabajo. El índice único sobre idempotency_hash hace que
// encolar dos veces el mismo trabajo lógico sea no-op: se devuelve el id existente.
func (r *WorkQueueRepo) Insert(item *entity.WorkItem) (int64, error) {
	query := `
		INSERT INTO work_queue
			(trace_id, queue_name, operation, transfer_id, idempotency_hash,
			 attempts, max_attempts, status, priority, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, now(), now())
		ON CONFLICT (idempotency_hash) DO NOTHING
		RETURNING id`
	var id int64
	err := r.q.QueryRow(context.Background(), query,
		item.TraceID, item.QueueName, item.Operation, item.TransferID, item.IdempotencyHash,
		item.MaxAttempts, item.Status, item.Priority, item.Payload,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("insert work item: %w", err)
	}

	// Conflicto: la fila ya existía; recuperar su id.
	err = r.q.QueryRow(context.Background(),
		`SELECT id FROM work_queue WHERE idempotency_hash = $1`, item.IdempotencyHash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup deduped work item: %w", err)
	}
	return id, nil
}
