package queue

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// Service encola trabajos diferidos de forma durable e idempotente.
// Solo inserta: el worker que consume la cola corre en otro proceso.
type Service struct {
	repo repository.WorkQueueRepository
}

// NewService construye el servicio de cola.
func NewService(repo repository.WorkQueueRepository) *Service {
	return &Service{repo: repo}
}

// Enqueue inserta un trabajo con presupuesto de reintentos y prioridad por
// defecto. El hash de idempotencia dedupea encolados lógicamente idénticos:
// repetir la llamada devuelve el id de la fila ya existente.
func (s *Service) Enqueue(queueName string, transferID int64, operation string, payload map[string]any) (int64, error) {
	hash, err := idempotencyHash(queueName, transferID, operation, payload)
	if err != nil {
		return 0, err
	}
	item := &entity.WorkItem{
		TraceID:         uuid.New().String(),
		QueueName:       queueName,
		Operation:       operation,
		TransferID:      transferID,
		IdempotencyHash: hash,
		MaxAttempts:     entity.WorkItemMaxAttempts,
		Status:          entity.WorkItemPending,
		Priority:        entity.WorkItemDefaultPriority,
		Payload:         payload,
	}
	return s.repo.Insert(item)
}

// idempotencyHash es determinístico: encoding/json ordena las claves de los
// maps, así que el mismo payload lógico produce siempre el mismo hash.
func idempotencyHash(queueName string, transferID int64, operation string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serializar payload de cola: %w", err)
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%s|%s", queueName, transferID, operation, body))
	return hex.EncodeToString(sum[:]), nil
}
