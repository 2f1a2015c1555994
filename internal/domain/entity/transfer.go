package entity

import "time"

// Estados del ciclo de vida de un traslado. El pipeline de subida solo avanza
// OPEN/PACKING -> PACKING -> SENT; nunca sale de SENT.
const (
	TransferStateOpen    = "OPEN"
	TransferStatePacking = "PACKING"
	TransferStateSent    = "SENT"
)

// Transfer representa un movimiento de stock entre dos outlets, con su espejo
// remoto (consignment Lightspeed) creado de forma perezosa.
type Transfer struct {
	ID                int64
	PublicID          string // referencia legible (ej: "TR-2026-00042")
	State             string
	OutletFrom        string // id de outlet Lightspeed origen
	OutletTo          string // id de outlet Lightspeed destino
	VendConsignmentID string // vacío hasta que se crea el consignment; se fija una sola vez
	VendNumber        string // referencia devuelta por Lightspeed (puede quedar vacía)
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Editable indica si el traslado admite submitAndPrepare (OPEN o PACKING).
func (t *Transfer) Editable() bool {
	return t.State == TransferStateOpen || t.State == TransferStatePacking
}

// HasConsignment indica si ya existe el consignment remoto.
func (t *Transfer) HasConsignment() bool {
	return t.VendConsignmentID != ""
}
