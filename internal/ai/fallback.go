package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// circuitState tracks rate-limit backoff for a single provider.
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

// FallbackProvider tries providers in order, skipping those with open circuits.
type FallbackProvider struct {
	providers []Provider
	circuits  []*circuitState
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewFallbackProvider creates a FallbackProvider from an ordered list.
func NewFallbackProvider(log logrus.FieldLogger, providers ...Provider) *FallbackProvider {
	if log == nil {
		log = logrus.StandardLogger()
	}
	circuits := make([]*circuitState, len(providers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackProvider{providers: providers, circuits: circuits, log: log, now: time.Now}
}

// Name implements Provider.
func (f *FallbackProvider) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

// Complete implements Provider.
func (f *FallbackProvider) Complete(ctx context.Context, req Request) (string, error) {
	if len(f.providers) == 0 {
		return "", ErrNoProvider
	}
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, p := range f.providers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.log.WithFields(logrus.Fields{
				"provider": p.Name(),
				"until":    resetAt.Format(time.RFC3339),
			}).Debug("Skipping provider, circuit open")
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := p.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		f.log.WithField("provider", p.Name()).WithError(err).Warn("Provider failed")
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return "", NewRateLimitError("all", fmt.Errorf("all providers rate limited"), int(retryAfter.Seconds()))
	}
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}
