package logging

import (
	"context"
	"time"
)

// DetachContext creates a context that won't be cancelled when parent is.
// Values (including the zerolog logger attached to parent) are preserved.
func DetachContext(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}

// DetachContextWithTimeout creates a detached context with its own timeout.
// Used for writes that must finish even when the turn that triggered them
// is cancelled, such as flushing a freshly learned answer to disk.
//
// Example usage:
//
//	commitCtx, cancel := logging.DetachContextWithTimeout(ctx, 5*time.Second)
//	defer cancel()
//	err := store.Add(commitCtx, question, answer)
func DetachContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(DetachContext(parent), timeout)
}
