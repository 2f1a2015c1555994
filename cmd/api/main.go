package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/Traslados-api/internal/application/idempotency"
	"github.com/jhoicas/Traslados-api/internal/application/queue"
	"github.com/jhoicas/Traslados-api/internal/application/upload"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/lightspeed"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Traslados-api/internal/interfaces/http"
	"github.com/jhoicas/Traslados-api/pkg/config"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Bool("ls_sync", cfg.Lightspeed.SyncEnabled).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	transferRepo := postgres.NewTransferRepository(pool)
	lineRepo := postgres.NewTransferLineRepository(pool)
	progressRepo := postgres.NewUploadProgressRepository(pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(pool)
	workQueueRepo := postgres.NewWorkQueueRepository(pool)
	auditRepo := postgres.NewAuditLogRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Cliente Lightspeed: solo se construye con la sincronización activa.
	// Apagada, el orquestador corta antes de cualquier llamada remota.
	var gateway upload.ConsignmentGateway
	if cfg.Lightspeed.SyncEnabled {
		client, err := lightspeed.NewClient(lightspeed.Config{
			BaseURL:    cfg.Lightspeed.BaseURL(),
			Token:      cfg.Lightspeed.Token,
			Timeout:    time.Duration(cfg.Lightspeed.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Lightspeed.MaxRetries,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("cliente Lightspeed")
		}
		gateway = lightspeed.NewGateway(client)
	}

	queueSvc := queue.NewService(workQueueRepo)
	idempotencySvc := idempotency.NewService(idempotencyRepo)
	auditSink := upload.NewAuditSink(auditRepo, log)

	orchestrator := upload.NewOrchestrator(
		txRunner, transferRepo, lineRepo, progressRepo,
		gateway, queueSvc, auditSink, log,
		cfg.Lightspeed.SyncEnabled,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // la subida remota puede tardar varios reintentos
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Orchestrator: orchestrator,
		Idempotency:  idempotencySvc,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
