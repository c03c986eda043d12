// Package actions executes the built-in commands selected by the router.
//
// Executors decide what to say and call narrow collaborator interfaces for
// side effects (opening a URL, toggling hardware). The collaborators in this
// package are thin OS adapters; tests substitute fakes.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/normanking/jarvis/internal/router"
)

var (
	// ErrUnknownAction is returned when no executor is registered for an action.
	ErrUnknownAction = errors.New("actions: unknown action")
	// ErrNoArgument is returned when an action needs an argument and got none.
	ErrNoArgument = errors.New("actions: missing argument")
	// ErrUnavailable is returned when the collaborator an action needs is not configured.
	ErrUnavailable = errors.New("actions: not available on this device")
)

// Executor performs one action and returns the reply to speak. An empty
// reply means the action has nothing to say.
type Executor interface {
	Execute(ctx context.Context, arg string) (reply string, err error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, arg string) (string, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, arg string) (string, error) {
	return f(ctx, arg)
}

// FailureError carries the reply the user should hear for a failed action.
type FailureError struct {
	Reply string
	Err   error
}

func (e *FailureError) Error() string {
	return e.Err.Error()
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// fail wraps err with a user-facing reply.
func fail(reply string, err error) error {
	return &FailureError{Reply: reply, Err: err}
}

// Registry maps actions to executors.
type Registry struct {
	mu        sync.RWMutex
	executors map[router.Action]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[router.Action]Executor)}
}

// Register binds exec to action, replacing any previous executor.
func (r *Registry) Register(action router.Action, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[action] = exec
}

// Has reports whether action has an executor.
func (r *Registry) Has(action router.Action) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[action]
	return ok
}

// Execute runs the executor registered for action.
func (r *Registry) Execute(ctx context.Context, action router.Action, arg string) (string, error) {
	r.mu.RLock()
	exec, ok := r.executors[action]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return exec.Execute(ctx, arg)
}
