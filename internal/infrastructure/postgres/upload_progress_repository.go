package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.UploadProgressRepository = (*UploadProgressRepo)(nil)

// UploadProgressRepo implementación del tracker de progreso sobre PostgreSQL.
type UploadProgressRepo struct {
	q Querier
}

// NewUploadProgressRepository construye el adaptador. Pasar pool o tx (Querier).
func NewUploadProgressRepository(q Querier) *UploadProgressRepo {
	return &UploadProgressRepo{q: q}
}

// Upsert inserta o pisa la fila de progreso de la sesión (last-write-wins).
func (r *UploadProgressRepo) Upsert(transferID int64, sessionID, status, message string, meta map[string]any) error {
	query := `
		INSERT INTO transfer_upload_progress (transfer_id, session_id, status, message, meta, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (transfer_id, session_id)
		DO UPDATE SET status = EXCLUDED.status, message = EXCLUDED.message,
		              meta = EXCLUDED.meta, updated_at = now()`
	_, err := r.q.Exec(context.Background(), query, transferID, sessionID, status, message, meta)
	if err != nil {
		return fmt.Errorf("upsert upload progress: %w", err)
	}
	return nil
}

// Get devuelve la fila actual de la sesión (nil si nunca se escribió).
func (r *UploadProgressRepo) Get(transferID int64, sessionID string) (*entity.UploadProgress, error) {
	query := `
		SELECT transfer_id, session_id, status, COALESCE(message, ''), meta, updated_at
		FROM transfer_upload_progress
		WHERE transfer_id = $1 AND session_id = $2`
	var p entity.UploadProgress
	err := r.q.QueryRow(context.Background(), query, transferID, sessionID).Scan(
		&p.TransferID, &p.SessionID, &p.Status, &p.Message, &p.Meta, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get upload progress: %w", err)
	}
	return &p, nil
}
