package entity

import "time"

// IdempotencyRecord mapea una clave provista por el cliente al resultado ya
// calculado de esa operación. La clave se reserva una sola vez; una segunda
// observación debe reproducir la respuesta cacheada en lugar de re-ejecutar.
type IdempotencyRecord struct {
	KeyHash     string // sha256 de la clave del cliente
	StatusCode  *int   // nil mientras la operación está en vuelo
	Response    []byte // JSON de la respuesta original; nil mientras está en vuelo
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Finalized indica si la operación asociada ya terminó y hay respuesta cacheada.
func (r *IdempotencyRecord) Finalized() bool {
	return r.StatusCode != nil && r.Response != nil
}
