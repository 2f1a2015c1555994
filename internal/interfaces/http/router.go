package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Traslados-api/internal/application/idempotency"
	"github.com/jhoicas/Traslados-api/internal/application/upload"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Orchestrator *upload.Orchestrator
	Idempotency  *idempotency.Service
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Orchestrator, deps.Idempotency)
	transfers.Post("/:id/submit", transferHandler.Submit)
	transfers.Post("/:id/upload/:session", transferHandler.Upload)
	transfers.Get("/:id/progress/:session", transferHandler.Progress)
}
