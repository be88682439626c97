package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/logging"
	"github.com/taskdaemon/taskdaemon/tasks"
)

// Handler executes one task type. Handle receives the task payload and
// returns a serializable result. Returning an error marks the execution
// failed; whether the failure is retried depends on the error's category
// (see the errors package), with plain errors treated as retryable.
type Handler interface {
	Handle(ctx context.Context, payload any) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload any) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, payload any) (any, error) {
	return f(ctx, payload)
}

// registration is one registered task type.
type registration struct {
	name    string
	handler Handler
	schema  *Schema
	timeout time.Duration // 0 means use the registry default
}

// Registry maps task type names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*registration

	defaultTimeout time.Duration
	logger         *logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for registration and dispatch events.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDefaultTimeout bounds every handler execution that does not declare
// its own timeout. Zero means handlers run unbounded.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.defaultTimeout = d
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		handlers: make(map[string]*registration),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterOption configures one handler registration.
type RegisterOption func(*registration)

// WithSchema declares the handler's input/output contract. Payloads and
// results are validated against it on every dispatch.
func WithSchema(s Schema) RegisterOption {
	return func(reg *registration) {
		reg.schema = &s
	}
}

// WithTimeout bounds this handler's executions, overriding the registry
// default.
func WithTimeout(d time.Duration) RegisterOption {
	return func(reg *registration) {
		if d > 0 {
			reg.timeout = d
		}
	}
}

// Register binds a handler to a task type name. Registering a name twice
// is a conflict; registrations normally all happen before the daemon
// starts, but Register is safe to call concurrently with dispatches.
func (r *Registry) Register(name string, h Handler, opts ...RegisterOption) error {
	if name == "" {
		return tderrors.InvalidInput("task type must not be empty")
	}
	if h == nil {
		return tderrors.InvalidInput("handler must not be nil")
	}

	reg := &registration{name: name, handler: h}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.schema != nil {
		if err := reg.schema.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return tderrors.Conflict(fmt.Sprintf("task type %q already registered", name))
	}
	r.handlers[name] = reg

	r.logger.Debug("handler_registered", map[string]interface{}{
		"task_type":  name,
		"has_schema": reg.schema != nil,
	})
	return nil
}

// RegisterFunc is Register for a bare function.
func (r *Registry) RegisterFunc(name string, f func(ctx context.Context, payload any) (any, error), opts ...RegisterOption) error {
	return r.Register(name, HandlerFunc(f), opts...)
}

// Types returns the registered task type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaFor returns the declared schema for a task type, or nil if the
// type is unregistered or declared no schema.
func (r *Registry) SchemaFor(name string) *Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if reg, ok := r.handlers[name]; ok {
		return reg.schema
	}
	return nil
}

// Dispatch resolves and runs the handler for a claimed task. The returned
// error's category decides the task's fate: permanent errors (unknown
// type, shape violations) kill the task, retryable ones consume a retry.
func (r *Registry) Dispatch(ctx context.Context, t *tasks.Task) (any, error) {
	r.mu.RLock()
	reg, ok := r.handlers[t.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, tderrors.UnknownTaskType(t.Type, tderrors.WithTaskID(t.ID))
	}

	payload := t.Payload
	if reg.schema != nil {
		validated, err := reg.schema.ValidateInputs(payload)
		if err != nil {
			return nil, err
		}
		payload = validated
	}

	result, err := r.invoke(ctx, reg, t.ID, payload)
	if err != nil {
		return nil, err
	}

	if reg.schema != nil {
		if err := reg.schema.ValidateOutputs(result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type outcome struct {
	result any
	err    error
}

func (r *Registry) invoke(ctx context.Context, reg *registration, taskID int64, payload any) (any, error) {
	timeout := reg.timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	if timeout <= 0 {
		return safeHandle(ctx, reg.handler, payload)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The handler may ignore its context; the select guarantees dispatch
	// itself returns once the deadline passes.
	done := make(chan outcome, 1)
	go func() {
		result, err := safeHandle(ctx, reg.handler, payload)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, tderrors.Timeout(
			fmt.Sprintf("handler for %q exceeded %s", reg.name, timeout),
			tderrors.WithTaskID(taskID))
	}
}

// safeHandle runs the handler, converting a panic into a retryable error.
func safeHandle(ctx context.Context, h Handler, payload any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = tderrors.RecoverPanic(rec)
		}
	}()
	return h.Handle(ctx, payload)
}
