package domain

import "errors"

// Errores de dominio del pipeline de subida (sin dependencias externas).
// Los handlers los mapean a códigos HTTP con errors.Is; nunca se usan excepciones
// para flujo de control esperado.
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrNotEditable          = errors.New("el traslado no está en un estado editable")
	ErrLineNotFound         = errors.New("producto no pertenece al traslado")
	ErrNoValidItems         = errors.New("ningún ítem válido para procesar")
	ErrRemoteCreateFailed   = errors.New("fallo al crear el consignment remoto")
	ErrRemoteFinalizeFailed = errors.New("fallo al marcar el consignment como SENT")
	ErrSyncDisabled         = errors.New("sincronización con Lightspeed deshabilitada")
	ErrAuthMissing          = errors.New("token de API Lightspeed no configurado")
	ErrConflict             = errors.New("conflicto con el estado actual")
)
