package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Traslados-api/internal/application/queue"
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

// Cola y operación del trabajo diferido que se encola tras una subida parcial.
const (
	retryQueueName = "consignments"
	retryOperation = "consignment.retry_upload"
)

// Actor identidad del operador, verificada aguas arriba y pasada explícita
// (nada de estado de sesión ambiente).
type Actor struct {
	UserID  string
	Display string
}

// SubmitItem una cantidad contada por producto, tal como llega del packing.
type SubmitItem struct {
	ProductID  string
	CountedQty int
}

// SubmitResult contrato devuelto al caller tras preparar la subida.
type SubmitResult struct {
	SessionID   string
	UploadURL   string
	ProgressURL string
}

// UploadResult resultado de la sincronización remota.
type UploadResult struct {
	Success       bool
	ConsignmentID string
	Added         int
	Failed        int
}

// Orchestrator es la máquina de estados del pipeline: valida y confirma
// cantidades en una transacción con bloqueo de fila, y dirige el proceso de
// dos fases de creación de consignment + subida de líneas + finalización.
type Orchestrator struct {
	txRunner     TxRunner
	transferRepo repository.TransferRepository     // atado al pool, para fase B
	lineRepo     repository.TransferLineRepository // atado al pool, para fase B
	progressRepo repository.UploadProgressRepository
	gateway      ConsignmentGateway
	queue        *queue.Service
	audit        *AuditSink
	log          *logger.Logger
	syncEnabled  bool
}

// NewOrchestrator construye el orquestador.
func NewOrchestrator(
	txRunner TxRunner,
	transferRepo repository.TransferRepository,
	lineRepo repository.TransferLineRepository,
	progressRepo repository.UploadProgressRepository,
	gateway ConsignmentGateway,
	queueSvc *queue.Service,
	audit *AuditSink,
	log *logger.Logger,
	syncEnabled bool,
) *Orchestrator {
	return &Orchestrator{
		txRunner:     txRunner,
		transferRepo: transferRepo,
		lineRepo:     lineRepo,
		progressRepo: progressRepo,
		gateway:      gateway,
		queue:        queueSvc,
		audit:        audit,
		log:          log,
		syncEnabled:  syncEnabled,
	}
}

// SubmitAndPrepare confirma las cantidades contadas y deja el traslado listo
// para subir. Todo-o-nada: un producto desconocido revierte la operación
// completa (un typo no puede descartar una línea en silencio). El sobreconteo
// se clampea a lo pedido en vez de rechazarse.
func (o *Orchestrator) SubmitAndPrepare(ctx context.Context, actor Actor, transferID int64, items []SubmitItem, notes string) (*SubmitResult, error) {
	started := time.Now()
	sessionID := uuid.New().String()
	var stateBefore string

	err := o.txRunner.Run(ctx, func(
		transferRepo repository.TransferRepository,
		lineRepo repository.TransferLineRepository,
		progressRepo repository.UploadProgressRepository,
	) error {
		t, err := transferRepo.GetForUpdate(transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFound
		}
		if !t.Editable() {
			return domain.ErrNotEditable
		}
		stateBefore = t.State

		processed := 0
		for _, item := range items {
			if item.CountedQty <= 0 {
				continue // sin conteo: se omite, no es error
			}
			line, err := lineRepo.GetByTransferAndProduct(transferID, item.ProductID)
			if err != nil {
				return err
			}
			if line == nil {
				return domain.ErrLineNotFound
			}
			qty := item.CountedQty
			if qty > line.QtyRequested {
				qty = line.QtyRequested // el conteo físico nunca supera lo pedido
			}
			if err := lineRepo.SetQtySent(line.ID, qty); err != nil {
				return err
			}
			// Cantidad nueva: la línea vuelve a estar pendiente de subida.
			if err := lineRepo.SetUploadState(line.ID, entity.LineUploadPending); err != nil {
				return err
			}
			processed++
		}
		if processed == 0 {
			return domain.ErrNoValidItems
		}

		if err := transferRepo.SetState(transferID, entity.TransferStatePacking); err != nil {
			return err
		}
		if notes != "" {
			stamped := fmt.Sprintf("[%s] %s: %s", time.Now().Format("2006-01-02 15:04"), actor.Display, notes)
			if err := transferRepo.AppendNote(transferID, stamped); err != nil {
				return err
			}
		}

		return progressRepo.Upsert(transferID, sessionID, entity.ProgressReady,
			"Listo para subir a Lightspeed", map[string]any{"items": processed})
	})
	if err != nil {
		return nil, err
	}

	o.audit.Record(&entity.AuditEvent{
		TransferID:  transferID,
		EventType:   entity.AuditSubmit,
		Actor:       actor.UserID,
		StateBefore: stateBefore,
		StateAfter:  entity.TransferStatePacking,
		Detail:      map[string]any{"session_id": sessionID, "items": len(items)},
		DurationMS:  time.Since(started).Milliseconds(),
	})

	return &SubmitResult{
		SessionID:   sessionID,
		UploadURL:   fmt.Sprintf("/api/transfers/%d/upload/%s", transferID, sessionID),
		ProgressURL: fmt.Sprintf("/api/transfers/%d/progress/%s", transferID, sessionID),
	}, nil
}

// UploadNow ejecuta la sincronización remota en dos fases. La fase A (asegurar
// el consignment remoto) corre dentro de una transacción con bloqueo de fila;
// la fase B (subida de líneas) corre fuera de todo lock porque cada línea es
// una llamada de red lenta que no debe retener la fila del traslado.
func (o *Orchestrator) UploadNow(ctx context.Context, actor Actor, transferID int64, sessionID string) (*UploadResult, error) {
	if !o.syncEnabled {
		o.progress(transferID, sessionID, entity.ProgressError,
			"Sincronización con Lightspeed deshabilitada", nil)
		return nil, domain.ErrSyncDisabled
	}

	transfer, err := o.ensureConsignment(ctx, actor, transferID, sessionID)
	if err != nil {
		return nil, err
	}

	return o.uploadLines(ctx, actor, transfer, sessionID)
}

// ensureConsignment es la fase A: crea el consignment remoto si no existe aún.
// Reentrante: si el id ya está fijado se omite la creación (nunca se duplica
// el consignment remoto) y se reporta `resuming`.
func (o *Orchestrator) ensureConsignment(ctx context.Context, actor Actor, transferID int64, sessionID string) (*entity.Transfer, error) {
	started := time.Now()
	var transfer *entity.Transfer
	created := false

	err := o.txRunner.Run(ctx, func(
		transferRepo repository.TransferRepository,
		lineRepo repository.TransferLineRepository,
		progressRepo repository.UploadProgressRepository,
	) error {
		t, err := transferRepo.GetForUpdate(transferID)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrNotFound
		}
		if t.State != entity.TransferStatePacking {
			// SENT no admite re-subida; OPEN significa que nunca hubo submit.
			return domain.ErrConflict
		}

		if !t.HasConsignment() {
			// Progreso fuera de la tx: debe sobrevivir al rollback.
			o.progress(transferID, sessionID, entity.ProgressCreating,
				"Creando consignment en Lightspeed", nil)

			res := o.gateway.CreateConsignment(ctx, t.OutletFrom, t.OutletTo, t.PublicID)
			if !res.OK || res.ConsignmentID == "" {
				o.progress(transferID, sessionID, entity.ProgressError,
					"Lightspeed rechazó la creación del consignment",
					map[string]any{"status": res.Status, "response": res.Raw, "error": res.Err})
				return domain.ErrRemoteCreateFailed
			}
			if err := transferRepo.SetConsignment(transferID, res.ConsignmentID, res.Reference); err != nil {
				return err
			}
			t.VendConsignmentID = res.ConsignmentID
			t.VendNumber = res.Reference
			created = true
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		o.progress(transferID, sessionID, entity.ProgressCreated,
			"Consignment creado", map[string]any{"consignment_id": transfer.VendConsignmentID})
		o.audit.Record(&entity.AuditEvent{
			TransferID:  transferID,
			EventType:   entity.AuditCreateConsignment,
			Actor:       actor.UserID,
			StateBefore: entity.TransferStatePacking,
			StateAfter:  entity.TransferStatePacking,
			Detail:      map[string]any{"consignment_id": transfer.VendConsignmentID, "session_id": sessionID},
			DurationMS:  time.Since(started).Milliseconds(),
		})
	} else {
		o.progress(transferID, sessionID, entity.ProgressResuming,
			"Consignment ya existente, retomando subida",
			map[string]any{"consignment_id": transfer.VendConsignmentID})
		o.audit.Record(&entity.AuditEvent{
			TransferID: transferID,
			EventType:  entity.AuditResumeConsignment,
			Actor:      actor.UserID,
			Detail:     map[string]any{"consignment_id": transfer.VendConsignmentID, "session_id": sessionID},
			DurationMS: time.Since(started).Milliseconds(),
		})
	}

	return transfer, nil
}

// uploadLines es la fase B: sube cada línea pendiente y decide la finalización.
// Una línea mala incrementa el contador de fallos y se continúa con la
// siguiente; un solo SKU roto no aborta una subida por lo demás exitosa.
func (o *Orchestrator) uploadLines(ctx context.Context, actor Actor, transfer *entity.Transfer, sessionID string) (*UploadResult, error) {
	lines, err := o.lineRepo.ListPendingUpload(transfer.ID)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{ConsignmentID: transfer.VendConsignmentID}
	for _, line := range lines {
		if line.VendProductID == "" || line.QtySent <= 0 {
			// Sin mapeo remoto o sin cantidad: fallo de línea, no fatal.
			result.Failed++
			o.markLine(line.ID, entity.LineUploadFailed)
			continue
		}

		o.progress(transfer.ID, sessionID, entity.ProgressAdding,
			fmt.Sprintf("Subiendo producto %s (x%d)", line.ProductID, line.QtySent),
			map[string]any{"product_id": line.ProductID, "count": line.QtySent})

		res := o.gateway.AddProduct(ctx, transfer.VendConsignmentID, line.VendProductID, line.QtySent)
		if res.OK {
			result.Added++
			o.markLine(line.ID, entity.LineUploadUploaded)
		} else {
			result.Failed++
			o.markLine(line.ID, entity.LineUploadFailed)
			o.log.Warn().
				Int64("transfer_id", transfer.ID).
				Str("product_id", line.ProductID).
				Int("status", res.Status).
				Str("error", res.Err).
				Msg("fallo al agregar producto al consignment")
		}
	}

	if result.Failed > 0 {
		// No se finaliza con fallos: el traslado queda en PACKING, re-invocable.
		o.progress(transfer.ID, sessionID, entity.ProgressFailed,
			fmt.Sprintf("Subida incompleta: %d ok, %d con error", result.Added, result.Failed),
			map[string]any{"added": result.Added, "failed": result.Failed})
		o.audit.Record(&entity.AuditEvent{
			TransferID:  transfer.ID,
			EventType:   entity.AuditUploadFailed,
			Actor:       actor.UserID,
			StateBefore: entity.TransferStatePacking,
			StateAfter:  entity.TransferStatePacking,
			Detail:      map[string]any{"added": result.Added, "failed": result.Failed, "session_id": sessionID},
		})
		o.enqueueRetry(transfer.ID, sessionID)
		return result, nil
	}

	o.progress(transfer.ID, sessionID, entity.ProgressFinalizing,
		"Marcando consignment como SENT", nil)
	res := o.gateway.MarkSent(ctx, transfer.VendConsignmentID)
	if !res.OK {
		// El consignment existe remoto pero no quedó SENT: inconsistencia
		// recuperable, se deja al operador (no se auto-reintenta acá).
		o.progress(transfer.ID, sessionID, entity.ProgressError,
			"Lightspeed rechazó el cambio de estado a SENT",
			map[string]any{"status": res.Status, "response": res.Raw, "error": res.Err})
		return result, domain.ErrRemoteFinalizeFailed
	}

	if err := o.transferRepo.SetState(transfer.ID, entity.TransferStateSent); err != nil {
		return result, err
	}
	result.Success = true

	o.progress(transfer.ID, sessionID, entity.ProgressCompleted,
		fmt.Sprintf("Subida completa: %d líneas", result.Added),
		map[string]any{"added": result.Added, "consignment_id": transfer.VendConsignmentID})
	o.audit.Record(&entity.AuditEvent{
		TransferID:  transfer.ID,
		EventType:   entity.AuditMarkSent,
		Actor:       actor.UserID,
		StateBefore: entity.TransferStatePacking,
		StateAfter:  entity.TransferStateSent,
		Detail:      map[string]any{"added": result.Added, "session_id": sessionID},
	})
	return result, nil
}

// progress escribe el estado de la sesión (upsert last-write-wins) fuera de
// toda transacción; un fallo se loguea y no interrumpe la subida.
func (o *Orchestrator) progress(transferID int64, sessionID, status, message string, meta map[string]any) {
	if err := o.progressRepo.Upsert(transferID, sessionID, status, message, meta); err != nil {
		o.log.Warn().Err(err).
			Int64("transfer_id", transferID).
			Str("session_id", sessionID).
			Str("status", status).
			Msg("no se pudo escribir el progreso")
	}
}

func (o *Orchestrator) markLine(lineID int64, state string) {
	if err := o.lineRepo.SetUploadState(lineID, state); err != nil {
		o.log.Warn().Err(err).Int64("line_id", lineID).Msg("no se pudo marcar la línea")
	}
}

// enqueueRetry encola el trabajo diferido de re-sincronización. Best-effort:
// el caller ya recibe success=false y puede reintentar manualmente.
func (o *Orchestrator) enqueueRetry(transferID int64, sessionID string) {
	if o.queue == nil {
		return
	}
	if _, err := o.queue.Enqueue(retryQueueName, transferID, retryOperation,
		map[string]any{"session_id": sessionID}); err != nil {
		o.log.Warn().Err(err).Int64("transfer_id", transferID).Msg("no se pudo encolar el reintento")
	}
}

// Progress devuelve la fila de progreso actual de una sesión (para el endpoint de polling).
func (o *Orchestrator) Progress(transferID int64, sessionID string) (*entity.UploadProgress, error) {
	p, err := o.progressRepo.Get(transferID, sessionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
