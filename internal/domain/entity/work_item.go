package entity

import "time"

// Estado inicial de un trabajo diferido. Los estados posteriores los gestiona
// el worker externo que consume la cola.
const WorkItemPending = "pending"

// Presupuesto de reintentos y prioridad por defecto al encolar.
const (
	WorkItemMaxAttempts     = 3
	WorkItemDefaultPriority = 5
)

// WorkItem es un trabajo asíncrono encolado de forma durable (ej: reintentar
// la sincronización de un consignment). Este servicio solo inserta; el
// consumo corre en un proceso aparte.
type WorkItem struct {
	ID              int64
	TraceID         string
	QueueName       string
	Operation       string
	TransferID      int64
	IdempotencyHash string // sha256(queue|transfer|operation|payload); único en DB
	Attempts        int
	MaxAttempts     int
	Status          string
	Priority        int
	Payload         map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
