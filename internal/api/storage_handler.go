package api

import (
	"github.com/Caia-Tech/darija-corpus/internal/storage"
	"github.com/gofiber/fiber/v2"
)

// StorageHandler exposes storage operation metrics
type StorageHandler struct {
	metrics *storage.SimpleMetricsCollector
}

// NewStorageHandler creates a new storage handler
func NewStorageHandler(metrics *storage.SimpleMetricsCollector) *StorageHandler {
	return &StorageHandler{metrics: metrics}
}

// GetStorageMetrics returns per-operation metrics
func (h *StorageHandler) GetStorageMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"metrics_summary": h.metrics.GetMetricsSummary(),
	})
}

// ClearMetrics clears all collected metrics
func (h *StorageHandler) ClearMetrics(c *fiber.Ctx) error {
	h.metrics.ClearMetrics()
	return c.JSON(fiber.Map{
		"message": "Metrics cleared successfully",
	})
}
