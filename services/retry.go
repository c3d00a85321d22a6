package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"secureshare/repository"
	"secureshare/storage"
)

// retryPolicy retries idempotent reads with exponential backoff. Writes are
// never retried here; their failures surface to the caller.
type retryPolicy struct {
	attempts int
	initial  time.Duration
	logger   *logrus.Logger
}

func (r retryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.MaxInterval = 2 * time.Second
	eb.MaxElapsedTime = 0

	retries := r.attempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// do runs op until it succeeds, returns a permanent error or the attempt
// budget is spent.
func (r retryPolicy) do(ctx context.Context, name string, op func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, r.newBackOff(ctx), func(err error, wait time.Duration) {
		storageRetriesTotal.WithLabelValues(name).Inc()
		r.logger.WithFields(logrus.Fields{
			"op":      name,
			"attempt": attempt,
			"wait":    wait.String(),
		}).WithError(err).Warn("Retrying storage read")
	})
}

// isPermanent reports errors that another attempt cannot fix.
func isPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, repository.ErrNotFound) {
		return true
	}
	var se *storage.StorageError
	if errors.As(err, &se) && (se.Code == "INVALID_HANDLE" || se.Code == "INVALID_NAME") {
		return true
	}
	return false
}
