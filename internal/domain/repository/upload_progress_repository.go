package repository

import "github.com/jhoicas/Traslados-api/internal/domain/entity"

// UploadProgressRepository define el puerto del tracker de progreso de subida.
// Una sola fila por (traslado, sesión): cada escritura es un upsert last-write-wins.
type UploadProgressRepository interface {
	Upsert(transferID int64, sessionID, status, message string, meta map[string]any) error
	// Get devuelve la fila actual o nil si la sesión no existe.
	Get(transferID int64, sessionID string) (*entity.UploadProgress, error)
}
