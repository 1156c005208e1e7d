package api

import (
	"errors"

	"github.com/Caia-Tech/darija-corpus/internal/storage"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request id
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// NewApp builds the fiber app with middleware and routes. metrics may be nil.
func NewApp(config *pipeline.ServerConfig, store storage.TranslationStore, metrics *storage.SimpleMetricsCollector) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Darija Corpus API",
		DisableStartupMessage: true,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":      err.Error(),
				"request_id": requestID(c),
			})
		},
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(RequestID())

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:request_id} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))

	origins := config.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, " + RequestIDHeader,
		AllowMethods: "GET, DELETE, OPTIONS",
	}))

	setupRoutes(app, NewHandlers(store), metrics)
	return app
}

// RequestID reuses the caller's X-Request-ID or assigns a new uuid
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func setupRoutes(app *fiber.App, h *Handlers, metrics *storage.SimpleMetricsCollector) {
	app.Get("/health", h.Health)

	v1 := app.Group("/api/v1")

	translations := v1.Group("/translations")
	translations.Get("/", h.ListTranslations)
	translations.Get("/:id", h.GetTranslation)

	v1.Get("/tags", h.ListTags)
	v1.Get("/stats", h.GetStats)

	if metrics != nil {
		storageHandler := NewStorageHandler(metrics)
		v1.Get("/storage/metrics", storageHandler.GetStorageMetrics)
		v1.Delete("/storage/metrics", storageHandler.ClearMetrics)
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Darija Corpus",
			"docs":    "https://github.com/Caia-Tech/darija-corpus",
		})
	})
}
