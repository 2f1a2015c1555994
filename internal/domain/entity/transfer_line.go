package entity

import "github.com/shopspring/decimal"

// Estados de subida por línea. Permite que un reintento de UploadNow omita las
// líneas ya subidas en lugar de reenviarlas al remoto.
const (
	LineUploadPending  = "pending"
	LineUploadUploaded = "uploaded"
	LineUploadFailed   = "failed"
)

// TransferLine es una línea de producto dentro de un traslado. Las filas
// preexisten (se crean al armar el traslado); el pipeline solo actualiza
// QtySent y UploadState.
type TransferLine struct {
	ID            int64
	TransferID    int64
	ProductID     string // id de producto local (SKU interno)
	VendProductID string // id de producto Lightspeed; vacío = sin mapeo remoto
	QtyRequested  int
	QtySent       int
	SupplyPrice   *decimal.Decimal // costo unitario opcional, NUMERIC en DB
	UploadState   string           // pending | uploaded | failed
}

// Uploadable indica si la línea participa en la fase B de subida:
// cantidad positiva, mapeo remoto resuelto y aún no subida.
func (l *TransferLine) Uploadable() bool {
	return l.QtySent > 0 && l.VendProductID != "" && l.UploadState != LineUploadUploaded
}
