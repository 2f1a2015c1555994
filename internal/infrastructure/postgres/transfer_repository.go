package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferRepository sobre PostgreSQL (usable con pool o tx).
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

const transferColumns = `id, public_id, state, outlet_from, outlet_to,
	COALESCE(vend_consignment_id, ''), COALESCE(vend_number, ''), COALESCE(notes, ''),
	created_at, updated_at`

func scanTransfer(row pgx.Row) (*entity.Transfer, error) {
	var t entity.Transfer
	err := row.Scan(
		&t.ID, &t.PublicID, &t.State, &t.OutletFrom, &t.OutletTo,
		&t.VendConsignmentID, &t.VendNumber, &t.Notes,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// GetByID obtiene un traslado por ID (nil si no existe).
func (r *TransferRepo) GetByID(id int64) (*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	t, err := scanTransfer(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

// GetForUpdate obtiene el traslado y bloquea la fila (SELECT FOR UPDATE).
// Dos submissions concurrentes sobre el mismo traslado se serializan aquí.
func (r *TransferRepo) GetForUpdate(id int64) (*entity.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`
	t, err := scanTransfer(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		return nil, fmt.Errorf("get transfer for update: %w", err)
	}
	return t, nil
}

// SetState actualiza el estado del ciclo de vida.
func (r *TransferRepo) SetState(id int64, state string) error {
	query := `UPDATE transfers SET state = $2, updated_at = now() WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, id, state)
	if err != nil {
		return fmt.Errorf("set transfer state: %w", err)
	}
	return nil
}

// SetConsignment fija el consignment remoto (una sola vez) y pasa a PACKING.
// El WHERE sobre vend_consignment_id IS NULL protege el invariante de escritura única.
func (r *TransferRepo) SetConsignment(id int64, consignmentID, vendNumber string) error {
	query := `
		UPDATE transfers
		SET vend_consignment_id = $2, vend_number = NULLIF($3, ''), state = $4, updated_at = now()
		WHERE id = $1 AND vend_consignment_id IS NULL`
	tag, err := r.q.Exec(context.Background(), query, id, consignmentID, vendNumber, entity.TransferStatePacking)
	if err != nil {
		return fmt.Errorf("set transfer consignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set transfer consignment: ya fijado o traslado inexistente")
	}
	return nil
}

// AppendNote agrega la nota al final del historial con salto de línea.
func (r *TransferRepo) AppendNote(id int64, note string) error {
	query := `
		UPDATE transfers
		SET notes = CASE WHEN COALESCE(notes, '') = '' THEN $2 ELSE notes || E'\n' || $2 END,
		    updated_at = now()
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, id, note)
	if err != nil {
		return fmt.Errorf("append transfer note: %w", err)
	}
	return nil
}
