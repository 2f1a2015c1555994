package entity

import "time"

// Vocabulario de estados de progreso de una sesión de subida. Abierto por
// convención: el poller trata cualquier valor desconocido como informativo.
const (
	ProgressReady      = "ready"
	ProgressConnecting = "connecting"
	ProgressCreating   = "creating"
	ProgressCreated    = "created"
	ProgressResuming   = "resuming"
	ProgressAdding     = "adding"
	ProgressFinalizing = "finalizing"
	ProgressCompleted  = "completed"
	ProgressFailed     = "failed"
	ProgressError      = "error"
)

// UploadProgress es la fila única de progreso por (traslado, sesión).
// Modelo last-write-wins: cada escritura es un upsert, el poller siempre ve
// el último estado. El histórico vive en la bitácora de auditoría.
type UploadProgress struct {
	TransferID int64
	SessionID  string
	Status     string
	Message    string
	Meta       map[string]any // blob arbitrario (respuesta remota, contadores, etc.)
	UpdatedAt  time.Time
}
