package upload

import (
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

// AuditSink bitácora fire-and-forget de las acciones del orquestador.
// Un fallo al escribir la bitácora nunca aborta la operación primaria.
type AuditSink struct {
	repo repository.AuditLogRepository
	log  *logger.Logger
}

// NewAuditSink construye el sink. repo puede ser nil (solo logging).
func NewAuditSink(repo repository.AuditLogRepository, log *logger.Logger) *AuditSink {
	return &AuditSink{repo: repo, log: log}
}

// Record persiste el evento y lo emite como log estructurado. Best-effort.
func (s *AuditSink) Record(ev *entity.AuditEvent) {
	s.log.Info().
		Int64("transfer_id", ev.TransferID).
		Str("event", ev.EventType).
		Str("actor", ev.Actor).
		Str("state_before", ev.StateBefore).
		Str("state_after", ev.StateAfter).
		Int64("duration_ms", ev.DurationMS).
		Msg("evento de orquestación")

	if s.repo == nil {
		return
	}
	if err := s.repo.Append(ev); err != nil {
		s.log.Warn().Err(err).
			Int64("transfer_id", ev.TransferID).
			Str("event", ev.EventType).
			Msg("no se pudo escribir la bitácora")
	}
}
