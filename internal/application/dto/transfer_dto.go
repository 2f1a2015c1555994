package dto

import "time"

// SubmitItemDTO cantidad contada para un producto del traslado.
type SubmitItemDTO struct {
	ProductID  string `json:"product_id" validate:"required"`
	CountedQty int    `json:"counted_qty" validate:"min=0"`
}

// SubmitTransferRequest cuerpo del submit de cantidades.
type SubmitTransferRequest struct {
	Items []SubmitItemDTO `json:"items" validate:"required,min=1"`
	Notes string          `json:"notes"`
}

// SubmitTransferResponse contrato devuelto tras preparar la subida.
type SubmitTransferResponse struct {
	Success         bool   `json:"success"`
	TransferID      int64  `json:"transfer_id"`
	UploadSessionID string `json:"upload_session_id"`
	UploadURL       string `json:"upload_url"`
	ProgressURL     string `json:"progress_url"`
}

// UploadResponse resultado de la sincronización con Lightspeed.
type UploadResponse struct {
	Success       bool   `json:"success"`
	ConsignmentID string `json:"consignment_id,omitempty"`
	Added         int    `json:"added"`
	Failed        int    `json:"failed"`
}

// ProgressResponse estado actual de una sesión de subida.
type ProgressResponse struct {
	TransferID int64          `json:"transfer_id"`
	SessionID  string         `json:"session_id"`
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
