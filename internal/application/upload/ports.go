package upload

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad para el submit y la
// fase A de la subida (bloqueo de fila incluido).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		transferRepo repository.TransferRepository,
		lineRepo repository.TransferLineRepository,
		progressRepo repository.UploadProgressRepository,
	) error) error
}

// GatewayResult es lo que el orquestador necesita de una llamada remota.
// Nunca es un error Go: los fallos HTTP se inspeccionan en OK/Status.
type GatewayResult struct {
	OK            bool
	Status        int
	ConsignmentID string // solo en CreateConsignment
	Reference     string // solo en CreateConsignment
	Raw           string // respuesta cruda, para progreso/auditoría
	Err           string
}

// ConsignmentGateway define el puerto de salida hacia la API de inventario
// remota. La implementación concreta usa Lightspeed; para tests se inyecta un fake.
type ConsignmentGateway interface {
	CreateConsignment(ctx context.Context, sourceOutletID, destOutletID, reference string) GatewayResult
	AddProduct(ctx context.Context, consignmentID, productID string, count int) GatewayResult
	MarkSent(ctx context.Context, consignmentID string) GatewayResult
}
