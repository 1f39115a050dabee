// Package reqstate tracks the lifecycle of one remote operation: idle,
// loading, succeeded with data, or failed with an *api.APIError.
package reqstate

import (
	"context"
	"sync"

	"finsight/internal/api"
)

// State is a snapshot of a controller. At rest exactly one holds: loading,
// Err set, or data present without error.
type State[T any] struct {
	Data      T
	HasData   bool
	IsLoading bool
	Err       *api.APIError
}

// Idle reports the initial state: nothing loaded, nothing failed.
func (s State[T]) Idle() bool {
	return !s.HasData && !s.IsLoading && s.Err == nil
}

// NoArgs is the argument type of operations that take none.
type NoArgs = struct{}

// Bind0 adapts a zero-argument operation to the controller signature.
func Bind0[T any](fn func(context.Context) (T, error)) func(context.Context, NoArgs) (T, error) {
	return func(ctx context.Context, _ NoArgs) (T, error) {
		return fn(ctx)
	}
}

type options[T any] struct {
	onSuccess  func(T)
	onError    func(*api.APIError)
	serialized bool
}

// Option configures a Controller.
type Option[T any] func(*options[T])

// OnSuccess registers a callback run after a successful Execute.
func OnSuccess[T any](fn func(T)) Option[T] {
	return func(o *options[T]) { o.onSuccess = fn }
}

// OnError registers a callback run after a failed Execute.
func OnError[T any](fn func(*api.APIError)) Option[T] {
	return func(o *options[T]) { o.onError = fn }
}

// Serialized makes overlapping Execute calls run one after another instead
// of racing.
func Serialized[T any]() Option[T] {
	return func(o *options[T]) { o.serialized = true }
}

// Controller wraps an operation and records the state of its last call.
//
// Overlapping calls are not cancelled or de-duplicated: the state reflects
// whichever call settles last, unless the controller is Serialized.
type Controller[A, T any] struct {
	op   func(context.Context, A) (T, error)
	opts options[T]

	run   sync.Mutex
	mu    sync.Mutex
	state State[T]
}

// New creates an idle controller for op.
func New[A, T any](op func(context.Context, A) (T, error), opts ...Option[T]) *Controller[A, T] {
	c := &Controller[A, T]{op: op}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Execute runs the operation. The previous error is cleared and the previous
// data kept while it is in flight. The returned error, when non-nil, is
// always an *api.APIError and is also recorded in the state.
func (c *Controller[A, T]) Execute(ctx context.Context, args A) (T, error) {
	if c.opts.serialized {
		c.run.Lock()
		defer c.run.Unlock()
	}

	c.mu.Lock()
	c.state.IsLoading = true
	c.state.Err = nil
	c.mu.Unlock()

	data, err := c.op(ctx, args)

	var zero T
	if err != nil {
		apiErr := api.FromError(err)
		c.mu.Lock()
		c.state = State[T]{Err: apiErr}
		c.mu.Unlock()
		if c.opts.onError != nil {
			c.opts.onError(apiErr)
		}
		return zero, apiErr
	}

	c.mu.Lock()
	c.state = State[T]{Data: data, HasData: true}
	c.mu.Unlock()
	if c.opts.onSuccess != nil {
		c.opts.onSuccess(data)
	}
	return data, nil
}

// Reset returns the controller to its idle state.
func (c *Controller[A, T]) Reset() {
	c.mu.Lock()
	c.state = State[T]{}
	c.mu.Unlock()
}

// State returns a snapshot of the current state.
func (c *Controller[A, T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
