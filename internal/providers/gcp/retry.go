package gcp

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/gantryhq/gantry/internal/errors"

	"github.com/cenkalti/backoff/v4"
)

// maxRetryAttempts bounds retries of transient remote failures.
const maxRetryAttempts = 4

// withRetry runs fn with exponential backoff on transient failures.
// Permanent failures (conflicts, authorization, bad requests) surface
// immediately. fn must already return classified application errors.
func withRetry(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if apperrors.IsTransient(err) {
			log.Warn("transient remote failure, retrying", "op", op, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	return backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, maxRetryAttempts), ctx))
}
