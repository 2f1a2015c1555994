package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepo)(nil)

// IdempotencyRepo implementación del almacén de claves sobre PostgreSQL.
type IdempotencyRepo struct {
	q Querier
}

// NewIdempotencyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIdempotencyRepository(q Querier) *IdempotencyRepo {
	return &IdempotencyRepo{q: q}
}

// Get devuelve el registro de la clave (nil si nunca se observó).
func (r *IdempotencyRepo) Get(keyHash string) (*entity.IdempotencyRecord, error) {
	query := `
		SELECT key_hash, status_code, response, created_at, completed_at
		FROM idempotency_keys WHERE key_hash = $1`
	var rec entity.IdempotencyRecord
	err := r.q.QueryRow(context.Background(), query, keyHash).Scan(
		&rec.KeyHash, &rec.StatusCode, &rec.Response, &rec.CreatedAt, &rec.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return &rec, nil
}

// Reserve inserta la fila de reserva; false si otro request ganó la carrera.
func (r *IdempotencyRepo) Reserve(keyHash string) (bool, error) {
	query := `INSERT INTO idempotency_keys (key_hash, created_at) VALUES ($1, now())`
	_, err := r.q.Exec(context.Background(), query, keyHash)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return true, nil
}

// Finalize guarda el resultado definitivo; no se reescribe una vez finalizado.
func (r *IdempotencyRepo) Finalize(keyHash string, statusCode int, response []byte) error {
	query := `
		UPDATE idempotency_keys
		SET status_code = $2, response = $3, completed_at = now()
		WHERE key_hash = $1 AND completed_at IS NULL`
	_, err := r.q.Exec(context.Background(), query, keyHash, statusCode, response)
	if err != nil {
		return fmt.Errorf("finalize idempotency key: %w", err)
	}
	return nil
}
