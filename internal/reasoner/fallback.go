package reasoner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"propveris/internal/port"
)

// circuitState tracks rate-limit backoff for a single backend.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackBackend tries reasoning backends in order, skipping those
// with open rate-limit circuits. It implements port.ReasoningBackend.
type FallbackBackend struct {
	backends []port.ReasoningBackend
	circuits []*circuitState
	names    []string
}

// NewFallbackBackend creates a FallbackBackend from an ordered list of
// backends and their names.
func NewFallbackBackend(backends []port.ReasoningBackend, names []string) *FallbackBackend {
	circuits := make([]*circuitState, len(backends))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackBackend{
		backends: backends,
		circuits: circuits,
		names:    names,
	}
}

func (f *FallbackBackend) Reason(ctx context.Context, input port.ReasonInput) (*port.ReasonOutput, error) {
	now := time.Now()
	var lastErr error
	var earliestReset time.Time

	for i, b := range f.backends {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("reasoner.FallbackBackend: skipping %s (circuit open until %s)", f.names[i], resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := b.Reason(ctx, input)
		if err == nil {
			return out, nil
		}

		log.Printf("reasoner.FallbackBackend: %s failed: %v", f.names[i], err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		}
	}

	if lastErr == nil {
		// All backends were skipped due to open circuits.
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all reasoning backends rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all reasoning backends failed: %w", lastErr)
}
