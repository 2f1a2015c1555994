package entity

import "time"

// Tipos de evento de la bitácora del pipeline.
const (
	AuditSubmit            = "SUBMIT_TRANSFER"
	AuditCreateConsignment = "CREATE_CONSIGNMENT"
	AuditResumeConsignment = "RESUME_CONSIGNMENT"
	AuditAddProduct        = "ADD_PRODUCT"
	AuditMarkSent          = "MARK_SENT"
	AuditUploadFailed      = "UPLOAD_FAILED"
)

// AuditEvent es una entrada de la bitácora de orquestación: quién, qué traslado,
// estado antes/después y detalle de la respuesta remota. Escritura best-effort.
type AuditEvent struct {
	ID          int64
	TransferID  int64
	EventType   string
	Actor       string // user id del operador (identidad verificada aguas arriba)
	StateBefore string
	StateAfter  string
	Detail      map[string]any
	DurationMS  int64
	CreatedAt   time.Time
}
