package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/Caia-Tech/darija-corpus/internal/storage"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Handlers contains the HTTP handlers for the translation API
type Handlers struct {
	store storage.TranslationStore
}

// NewHandlers creates a new handlers instance
func NewHandlers(store storage.TranslationStore) *Handlers {
	return &Handlers{store: store}
}

// Health returns the service health status
func (h *Handlers) Health(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if err := h.store.Health(c.UserContext()); err != nil {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"service":   "darija-corpus",
		"timestamp": time.Now().UTC(),
	})
}

// ListTranslations lists translations filtered by source_lang, target_lang and tag
func (h *Handlers) ListTranslations(c *fiber.Ctx) error {
	limit, err := parseUint(c.Query("limit"), defaultLimit)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err := parseUint(c.Query("offset"), 0)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid offset")
	}

	filter := storage.ListFilter{
		SourceLang: c.Query("source_lang"),
		TargetLang: c.Query("target_lang"),
		Tag:        c.Query("tag"),
		Limit:      limit,
		Offset:     offset,
	}

	translations, err := h.store.List(c.UserContext(), filter)
	if err != nil {
		logger := logging.GetLogger("api")
		logger.Error().Err(err).Str("request_id", requestID(c)).Msg("Failed to list translations")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list translations")
	}

	return c.JSON(fiber.Map{
		"translations": translations,
		"count":        len(translations),
		"limit":        limit,
		"offset":       offset,
	})
}

// GetTranslation returns one translation by id
func (h *Handlers) GetTranslation(c *fiber.Ctx) error {
	id := c.Params("id")
	t, err := h.store.Get(c.UserContext(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "translation not found")
	}
	if err != nil {
		logger := logging.GetLogger("api")
		logger.Error().Err(err).Str("id", id).Msg("Failed to get translation")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to get translation")
	}
	return c.JSON(t)
}

// ListTags returns tag usage counts
func (h *Handlers) ListTags(c *fiber.Ctx) error {
	tags, err := h.store.Tags(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list tags")
	}
	return c.JSON(fiber.Map{"tags": tags})
}

// GetStats returns corpus counts
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	stats, err := h.store.Stats(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to compute stats")
	}
	return c.JSON(stats)
}

func parseUint(raw string, fallback uint64) (uint64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
