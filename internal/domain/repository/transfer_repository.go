package repository

import "github.com/jhoicas/Traslados-api/internal/domain/entity"

// TransferRepository define el puerto de persistencia de traslados.
// Usado dentro de transacciones para las fases que requieren bloqueo de fila.
type TransferRepository interface {
	// GetByID devuelve el traslado o nil si no existe.
	GetByID(id int64) (*entity.Transfer, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE); solo tiene sentido dentro de una tx.
	GetForUpdate(id int64) (*entity.Transfer, error)
	SetState(id int64, state string) error
	// SetConsignment fija el consignment remoto y pasa el traslado a PACKING.
	// El id remoto se escribe una sola vez; no se reescribe si ya está fijado.
	SetConsignment(id int64, consignmentID, vendNumber string) error
	// AppendNote agrega una nota al historial (nunca sobreescribe).
	AppendNote(id int64, note string) error
}
