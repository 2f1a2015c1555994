package http

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Traslados-api/internal/application/dto"
	"github.com/jhoicas/Traslados-api/internal/application/idempotency"
	"github.com/jhoicas/Traslados-api/internal/application/upload"
	"github.com/jhoicas/Traslados-api/internal/domain"
)

// TransferHandler maneja las peticiones HTTP del pipeline de subida (protegido).
type TransferHandler struct {
	orchestrator *upload.Orchestrator
	idempotency  *idempotency.Service
}

// NewTransferHandler construye el handler. idem puede ser nil (sin replay).
func NewTransferHandler(orchestrator *upload.Orchestrator, idem *idempotency.Service) *TransferHandler {
	return &TransferHandler{orchestrator: orchestrator, idempotency: idem}
}

// Submit godoc
// @Summary      Confirmar cantidades contadas y preparar la subida
// @Description  Valida y clampea las cantidades, pasa el traslado a PACKING y
//
//	devuelve la sesión de subida. Honra el header Idempotency-Key:
//	una clave ya finalizada reproduce la respuesta original.
//
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                        true  "ID del traslado"
// @Param        body  body  dto.SubmitTransferRequest  true  "items con cantidades contadas, notes opcional"
// @Success      200   {object}  dto.SubmitTransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/submit [post]
func (h *TransferHandler) Submit(c *fiber.Ctx) error {
	transferID, err := parseTransferID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id de traslado inválido"})
	}
	var in dto.SubmitTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if len(in.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "items requerido"})
	}

	idemKey := c.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		begin, err := h.idempotency.Begin(idemKey)
		if err == nil && begin.Cached {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(begin.StatusCode).Send(begin.Response)
		}
	}

	actor := upload.Actor{UserID: GetUserID(c), Display: GetDisplay(c)}
	items := make([]upload.SubmitItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, upload.SubmitItem{ProductID: it.ProductID, CountedQty: it.CountedQty})
	}

	result, err := h.orchestrator.SubmitAndPrepare(c.Context(), actor, transferID, items, in.Notes)
	if err != nil {
		return writeDomainError(c, err)
	}

	resp := dto.SubmitTransferResponse{
		Success:         true,
		TransferID:      transferID,
		UploadSessionID: result.SessionID,
		UploadURL:       result.UploadURL,
		ProgressURL:     result.ProgressURL,
	}
	if idemKey != "" && h.idempotency != nil {
		if body, err := json.Marshal(resp); err == nil {
			_ = h.idempotency.Finish(idemKey, fiber.StatusOK, body)
		}
	}
	return c.JSON(resp)
}

// Upload godoc
// @Summary      Subir el traslado a Lightspeed
// @Description  Crea (o retoma) el consignment remoto, sube las líneas
//
//	pendientes y, si no hubo fallos, lo finaliza como SENT.
//
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id       path  int     true  "ID del traslado"
// @Param        session  path  string  true  "ID de la sesión de subida"
// @Success      200  {object}  dto.UploadResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/upload/{session} [post]
func (h *TransferHandler) Upload(c *fiber.Ctx) error {
	transferID, err := parseTransferID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id de traslado inválido"})
	}
	sessionID := c.Params("session")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "session requerido"})
	}

	actor := upload.Actor{UserID: GetUserID(c), Display: GetDisplay(c)}
	result, err := h.orchestrator.UploadNow(c.Context(), actor, transferID, sessionID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(dto.UploadResponse{
		Success:       result.Success,
		ConsignmentID: result.ConsignmentID,
		Added:         result.Added,
		Failed:        result.Failed,
	})
}

// Progress godoc
// @Summary      Estado actual de una sesión de subida
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id       path  int     true  "ID del traslado"
// @Param        session  path  string  true  "ID de la sesión de subida"
// @Success      200  {object}  dto.ProgressResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/progress/{session} [get]
func (h *TransferHandler) Progress(c *fiber.Ctx) error {
	transferID, err := parseTransferID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id de traslado inválido"})
	}
	sessionID := c.Params("session")

	p, err := h.orchestrator.Progress(transferID, sessionID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(dto.ProgressResponse{
		TransferID: p.TransferID,
		SessionID:  p.SessionID,
		Status:     p.Status,
		Message:    p.Message,
		Meta:       p.Meta,
		UpdatedAt:  p.UpdatedAt,
	})
}

func parseTransferID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// writeDomainError mapea los errores de dominio a respuestas HTTP.
func writeDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "traslado o sesión no encontrado"})
	case errors.Is(err, domain.ErrNotEditable):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_EDITABLE", Message: "el traslado no admite cambios en su estado actual"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "el traslado no está en condiciones de subir"})
	case errors.Is(err, domain.ErrLineNotFound):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "LINE_NOT_FOUND", Message: "producto no pertenece al traslado"})
	case errors.Is(err, domain.ErrNoValidItems):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "NO_VALID_ITEMS", Message: "ninguna línea con cantidad contada"})
	case errors.Is(err, domain.ErrSyncDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "SYNC_DISABLED", Message: "sincronización con Lightspeed deshabilitada"})
	case errors.Is(err, domain.ErrRemoteCreateFailed):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "REMOTE_CREATE_FAILED", Message: "Lightspeed rechazó la creación del consignment"})
	case errors.Is(err, domain.ErrRemoteFinalizeFailed):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "REMOTE_FINALIZE_FAILED", Message: "Lightspeed rechazó la finalización del consignment"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
