package repository

import "github.com/jhoicas/Traslados-api/internal/domain/entity"

// IdempotencyRepository define el puerto del almacén de claves de idempotencia.
type IdempotencyRepository interface {
	// Get devuelve el registro o nil si la clave nunca se observó.
	Get(keyHash string) (*entity.IdempotencyRecord, error)
	// Reserve inserta la fila de reserva. Devuelve false si otro request
	// la reservó primero (violación de clave única).
	Reserve(keyHash string) (bool, error)
	// Finalize guarda el resultado definitivo de la operación.
	Finalize(keyHash string, statusCode int, response []byte) error
}
