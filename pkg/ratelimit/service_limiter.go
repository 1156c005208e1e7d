package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Service names paced by the pipelines
const (
	ServiceOpenAI      = "openai"
	ServiceHuggingFace = "huggingface"
	ServiceTranslator  = "translator"
)

// ServiceRateLimiter spaces requests to external services and backs off on repeated errors
type ServiceRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*serviceLimiter
}

type serviceLimiter struct {
	name            string
	minInterval     time.Duration
	lastRequestTime time.Time
	backoffUntil    time.Time
	requestCount    int64
	errorCount      int64
}

// NewServiceRateLimiter creates a limiter with the default pacing per service
func NewServiceRateLimiter() *ServiceRateLimiter {
	return &ServiceRateLimiter{
		limiters: map[string]*serviceLimiter{
			ServiceOpenAI: {
				name:        ServiceOpenAI,
				minInterval: 1 * time.Second,
			},
			ServiceHuggingFace: {
				name:        ServiceHuggingFace,
				minInterval: 500 * time.Millisecond,
			},
			ServiceTranslator: {
				name:        ServiceTranslator,
				minInterval: 5 * time.Second,
			},
		},
	}
}

// SetInterval registers or updates a service's minimum spacing
func (r *ServiceRateLimiter) SetInterval(service string, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[service]; ok {
		l.minInterval = interval
		return
	}
	r.limiters[service] = &serviceLimiter{name: service, minInterval: interval}
}

// Wait blocks until it's safe to make a request to the service
func (r *ServiceRateLimiter) Wait(ctx context.Context, service string) error {
	r.mu.Lock()
	limiter, exists := r.limiters[service]
	if !exists {
		r.mu.Unlock()
		return fmt.Errorf("unknown service: %s", service)
	}

	now := time.Now()

	if now.Before(limiter.backoffUntil) {
		waitTime := limiter.backoffUntil.Sub(now)
		r.mu.Unlock()

		select {
		case <-time.After(waitTime):
			return r.Wait(ctx, service)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	sinceLast := now.Sub(limiter.lastRequestTime)
	if sinceLast < limiter.minInterval {
		waitTime := limiter.minInterval - sinceLast
		r.mu.Unlock()

		select {
		case <-time.After(waitTime):
			r.mu.Lock()
			limiter.lastRequestTime = time.Now()
			limiter.requestCount++
			r.mu.Unlock()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	limiter.lastRequestTime = now
	limiter.requestCount++
	r.mu.Unlock()
	return nil
}

// RecordError records a failed call and triggers backoff after three in a row
func (r *ServiceRateLimiter) RecordError(service string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, exists := r.limiters[service]
	if !exists {
		return
	}

	limiter.errorCount++

	if limiter.errorCount > 3 {
		backoff := time.Duration(limiter.errorCount) * 10 * time.Second
		if backoff > 2*time.Minute {
			backoff = 2 * time.Minute
		}
		limiter.backoffUntil = time.Now().Add(backoff)
	}
}

// RecordSuccess resets the error count for a service
func (r *ServiceRateLimiter) RecordSuccess(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, exists := r.limiters[service]; exists {
		limiter.errorCount = 0
	}
}

// GetStats returns statistics for all services
func (r *ServiceRateLimiter) GetStats() map[string]ServiceStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[string]ServiceStats)
	for name, limiter := range r.limiters {
		stats[name] = ServiceStats{
			RequestCount:    limiter.requestCount,
			ErrorCount:      limiter.errorCount,
			LastRequestTime: limiter.lastRequestTime,
			InBackoff:       time.Now().Before(limiter.backoffUntil),
			BackoffUntil:    limiter.backoffUntil,
		}
	}
	return stats
}

// ServiceStats contains statistics for a service
type ServiceStats struct {
	RequestCount    int64
	ErrorCount      int64
	LastRequestTime time.Time
	InBackoff       bool
	BackoffUntil    time.Time
}
