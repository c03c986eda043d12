package knowledge

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how often a failed write is retried before the error is
// surfaced. Delays follow a Fibonacci sequence starting at BaseDelay.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultRetryPolicy returns the production write retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
	}
}

// Do runs task, retrying transient failures. Permanent failures return
// immediately with the original error.
func (p RetryPolicy) Do(ctx context.Context, op string, task func(ctx context.Context) error) error {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.WithMaxRetries(p.MaxRetries, retry.NewFibonacci(base))

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := task(ctx)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("knowledge write failed, retrying")
		return retry.RetryableError(err)
	})
}

// shouldRetry reports whether err is transient. Permission, missing path,
// read-only and full-disk errors will not heal by waiting.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) {
		return false
	}

	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.EISDIR),
		errors.Is(err, syscall.ENAMETOOLONG):
		return false
	}

	if strings.Contains(err.Error(), "read-only file system") {
		return false
	}

	return true
}
