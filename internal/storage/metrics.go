package storage

import (
	"sync"
	"time"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
)

// SimpleMetricsCollector keeps every storage metric in memory
type SimpleMetricsCollector struct {
	metrics []StorageMetrics
	mutex   sync.RWMutex
}

// NewSimpleMetricsCollector creates a new simple metrics collector
func NewSimpleMetricsCollector() *SimpleMetricsCollector {
	return &SimpleMetricsCollector{
		metrics: make([]StorageMetrics, 0),
	}
}

// RecordMetric records a storage operation metric
func (s *SimpleMetricsCollector) RecordMetric(metric StorageMetrics) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.metrics = append(s.metrics, metric)

	logger := logging.GetStorageLogger(metric.OperationType, metric.Backend)
	event := logger.Debug().
		Int64("duration_ns", metric.Duration).
		Bool("success", metric.Success)
	if metric.Error != nil {
		event = event.Err(metric.Error)
	}
	event.Msg("Storage operation metric recorded")
}

// GetMetrics returns a copy of all collected metrics
func (s *SimpleMetricsCollector) GetMetrics() []StorageMetrics {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]StorageMetrics, len(s.metrics))
	copy(result, s.metrics)
	return result
}

// MetricsSummary groups operation stats by backend then operation
type MetricsSummary struct {
	ByBackend       map[string]map[string]*OperationStats `json:"by_backend"`
	TotalOperations int                                   `json:"total_operations"`
}

// GetMetricsSummary aggregates the collected metrics
func (s *SimpleMetricsCollector) GetMetricsSummary() *MetricsSummary {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	byBackend := make(map[string]map[string]*OperationStats)

	for _, metric := range s.metrics {
		if byBackend[metric.Backend] == nil {
			byBackend[metric.Backend] = make(map[string]*OperationStats)
		}
		if byBackend[metric.Backend][metric.OperationType] == nil {
			byBackend[metric.Backend][metric.OperationType] = &OperationStats{}
		}

		stats := byBackend[metric.Backend][metric.OperationType]
		stats.Count++
		stats.TotalDuration += metric.Duration

		if metric.Success {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}

		if stats.Count == 1 || metric.Duration < stats.MinDuration {
			stats.MinDuration = metric.Duration
		}
		if metric.Duration > stats.MaxDuration {
			stats.MaxDuration = metric.Duration
		}
		stats.AvgDuration = stats.TotalDuration / int64(stats.Count)
	}

	return &MetricsSummary{ByBackend: byBackend, TotalOperations: len(s.metrics)}
}

// ClearMetrics clears all collected metrics
func (s *SimpleMetricsCollector) ClearMetrics() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.metrics = make([]StorageMetrics, 0)
}

// OperationStats holds statistics for a specific operation type
type OperationStats struct {
	Count         int   `json:"count"`
	SuccessCount  int   `json:"success_count"`
	FailureCount  int   `json:"failure_count"`
	TotalDuration int64 `json:"total_duration_ns"`
	MinDuration   int64 `json:"min_duration_ns"`
	MaxDuration   int64 `json:"max_duration_ns"`
	AvgDuration   int64 `json:"avg_duration_ns"`
}

// GetSuccessRate returns the success rate as a percentage
func (o *OperationStats) GetSuccessRate() float64 {
	if o.Count == 0 {
		return 0.0
	}
	return float64(o.SuccessCount) / float64(o.Count) * 100.0
}

// GetAvgDurationMs returns the average duration in milliseconds
func (o *OperationStats) GetAvgDurationMs() float64 {
	return float64(o.AvgDuration) / float64(time.Millisecond)
}

func recordMetric(collector MetricsCollector, backend, operation string, start time.Time, err error) {
	if collector == nil {
		return
	}
	collector.RecordMetric(StorageMetrics{
		OperationType: operation,
		Duration:      time.Since(start).Nanoseconds(),
		Success:       err == nil,
		Backend:       backend,
		Error:         err,
	})
}
