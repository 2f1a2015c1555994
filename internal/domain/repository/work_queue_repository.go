package repository

import "github.com/jhoicas/Traslados-api/internal/domain/entity"

// WorkQueueRepository define el puerto de inserción durable de trabajos diferidos.
// El consumo y los reintentos corren en el worker externo.
type WorkQueueRepository interface {
	// Insert encola el trabajo. Si ya existe una fila con el mismo
	// idempotency_hash devuelve el id existente (encolar repetido es no-op).
	Insert(item *entity.WorkItem) (int64, error)
}
