package repository

import "github.com/jhoicas/Traslados-api/internal/domain/entity"

// TransferLineRepository define el puerto de persistencia de líneas de traslado.
// Las líneas preexisten; el pipeline solo actualiza cantidad enviada y estado de subida.
type TransferLineRepository interface {
	// GetByTransferAndProduct devuelve la línea o nil si el producto no pertenece al traslado.
	GetByTransferAndProduct(transferID int64, productID string) (*entity.TransferLine, error)
	SetQtySent(lineID int64, qty int) error
	// ListPendingUpload devuelve las líneas con qty_sent > 0 que aún no fueron
	// subidas (upload_state <> uploaded), en orden de id.
	ListPendingUpload(transferID int64) ([]*entity.TransferLine, error)
	SetUploadState(lineID int64, state string) error
}
