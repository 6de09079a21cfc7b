// Package retrypolicy implements the exponential-backoff retry applied
// around transient I/O failures, grounded on mapchete's IORetrySettings
// and its use as a decorator around vector/raster read functions.
package retrypolicy

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// IORetrySettings configures Do's backoff schedule. Defaults (3 tries, 1s
// base, exponential) are mapchete's own, not invented (see DESIGN.md open
// questions).
type IORetrySettings struct {
	Tries    int
	Delay    time.Duration
	Backoff  float64
	MaxDelay time.Duration
	Logger   *logrus.Entry
}

// Default returns mapchete's own retry defaults.
func Default() IORetrySettings {
	return IORetrySettings{
		Tries:    3,
		Delay:    1 * time.Second,
		Backoff:  2.0,
		MaxDelay: 30 * time.Second,
	}
}

// Do runs fn, retrying on error up to Tries-1 additional times with
// exponential backoff. It stops retrying early if ctx is cancelled.
func Do(ctx context.Context, settings IORetrySettings, fn func() error) error {
	if settings.Tries <= 0 {
		settings.Tries = 1
	}
	delay := settings.Delay
	if delay <= 0 {
		delay = 1 * time.Second
	}
	backoff := settings.Backoff
	if backoff <= 0 {
		backoff = 2.0
	}

	var lastErr error
	for attempt := 1; attempt <= settings.Tries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if settings.Logger != nil {
			settings.Logger.WithError(lastErr).WithField("attempt", attempt).Debug("retrying after I/O error")
		}
		if attempt == settings.Tries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * backoff)
		if settings.MaxDelay > 0 && delay > settings.MaxDelay {
			delay = settings.MaxDelay
		}
	}
	return lastErr
}
