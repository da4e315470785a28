package gateway

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/health-triage-server/internal/domain"
)

// ResilientClient wraps the gateway client with a circuit breaker and a
// response cache. Cacheable requests are served from the cache when
// possible; everything else goes through the breaker.
type ResilientClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker
	cache   ResponseCache
	log     *logrus.Logger
}

// NewResilientClient creates a resilient gateway client
func NewResilientClient(client *Client, cache ResponseCache, logger *logrus.Logger) *ResilientClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "TextGeneration",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientClient{
		client:  client,
		breaker: breaker,
		cache:   cache,
		log:     logger,
	}
}

// Generate runs a generation request through the cache and circuit
// breaker. An open breaker surfaces as domain.ErrGenerationFailed like any
// other gateway failure.
func (r *ResilientClient) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	var key string
	if req.Cacheable && r.cache != nil {
		key = CacheKey(req.SystemPrompt, req.UserPrompt)
		if text, ok := r.cache.Get(ctx, key); ok {
			r.log.Debug("Gateway response served from cache")
			return text, nil
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.Generate(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", &Error{Message: err.Error()}
		}
		return "", err
	}

	text := result.(string)
	if key != "" {
		r.cache.Set(ctx, key, text)
	}

	return text, nil
}
