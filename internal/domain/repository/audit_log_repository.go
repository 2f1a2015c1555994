package repository

import "github.com/jhoicas/Traslados-api/internal/domain/entity"

// AuditLogRepository define el puerto de la bitácora de orquestación.
type AuditLogRepository interface {
	Append(ev *entity.AuditEvent) error
}
