package api

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes leaves room for an import of a full default quota.
const maxBodyBytes = 8 * 1024 * 1024

type AppOptions struct {
	// AccessLog receives one line per request; nil disables it.
	AccessLog io.Writer
}

func NewApp(handler *Handler, options AppOptions) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "paindiary",
		DisableStartupMessage: true,
		BodyLimit:             maxBodyBytes,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	if options.AccessLog != nil {
		app.Use(fiberlogger.New(fiberlogger.Config{Output: options.AccessLog}))
	}
	app.Use(compress.New())

	RegisterRoutes(app, handler)
	return app
}

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	if registry := handler.metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	app.Post("/api/auth/login", handler.Login)

	protected := app.Group("/api", handler.AuthRequired)
	protected.Get("/records", handler.ListRecords)
	protected.Post("/records", handler.CreateRecord)
	protected.Get("/records/:id", handler.GetRecord)
	protected.Patch("/records/:id", handler.UpdateRecord)
	protected.Delete("/records/:id", handler.DeleteRecord)

	protected.Get("/export", handler.Export)
	protected.Post("/import", handler.Import)
	protected.Get("/stats", handler.Stats)
	protected.Post("/cleanup", handler.Cleanup)
	protected.Post("/clear", handler.Clear)

	protected.Get("/preferences", handler.GetPreferences)
	protected.Put("/preferences", handler.UpdatePreferences)

	protected.Get("/backups", handler.ListBackups)
	protected.Post("/backups", handler.CreateBackup)
	protected.Post("/backups/:key/restore", handler.RestoreBackup)

	protected.Get("/storage", handler.StorageUsage)
}
