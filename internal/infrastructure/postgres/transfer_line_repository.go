package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.TransferLineRepository = (*TransferLineRepo)(nil)

// TransferLineRepo implementación de TransferLineRepository sobre PostgreSQL.
type TransferLineRepo struct {
	q Querier
}

// NewTransferLineRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferLineRepository(q Querier) *TransferLineRepo {
	return &TransferLineRepo{q: q}
}

const lineColumns = `id, transfer_id, product_id, COALESCE(vend_product_id, ''),
	qty_requested, qty_sent, supply_price, upload_state`

func scanLine(row pgx.Row) (*entity.TransferLine, error) {
	var l entity.TransferLine
	err := row.Scan(
		&l.ID, &l.TransferID, &l.ProductID, &l.VendProductID,
		&l.QtyRequested, &l.QtySent, &l.SupplyPrice, &l.UploadState,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// GetByTransferAndProduct devuelve la línea (nil si el producto no pertenece al traslado).
func (r *TransferLineRepo) GetByTransferAndProduct(transferID int64, productID string) (*entity.TransferLine, error) {
	query := `SELECT ` + lineColumns + ` FROM transfer_items WHERE transfer_id = $1 AND product_id = $2`
	l, err := scanLine(r.q.QueryRow(context.Background(), query, transferID, productID))
	if err != nil {
		return nil, fmt.Errorf("get transfer line: %w", err)
	}
	return l, nil
}

// SetQtySent persiste la cantidad contada (ya clampeada por el orquestador).
func (r *TransferLineRepo) SetQtySent(lineID int64, qty int) error {
	query := `UPDATE transfer_items SET qty_sent = $2 WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, lineID, qty)
	if err != nil {
		return fmt.Errorf("set qty sent: %w", err)
	}
	return nil
}

// ListPendingUpload devuelve las líneas con cantidad positiva aún no subidas.
func (r *TransferLineRepo) ListPendingUpload(transferID int64) ([]*entity.TransferLine, error) {
	query := `
		SELECT ` + lineColumns + `
		FROM transfer_items
		WHERE transfer_id = $1 AND qty_sent > 0 AND upload_state <> $2
		ORDER BY id`
	rows, err := r.q.Query(context.Background(), query, transferID, entity.LineUploadUploaded)
	if err != nil {
		return nil, fmt.Errorf("list pending upload: %w", err)
	}
	defer rows.Close()

	var lines []*entity.TransferLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending upload: %w", err)
	}
	return lines, nil
}

// SetUploadState marca el resultado de la subida de una línea.
func (r *TransferLineRepo) SetUploadState(lineID int64, state string) error {
	query := `UPDATE transfer_items SET upload_state = $2 WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, lineID, state)
	if err != nil {
		return fmt.Errorf("set upload state: %w", err)
	}
	return nil
}
