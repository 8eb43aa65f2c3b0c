package live

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voxa-ai/voxa/pkg/live/protocol"
)

// Handler executes one tool call. Handlers may block on external
// collaborators; a nil result with a nil error is acknowledged generically.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Registry maps tool names to handlers. The fixed known tool set stays
// auditable: Names lists every registered tool.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register binds a handler to a tool name, replacing any previous binding.
func (r *Registry) Register(name string, h Handler) {
	name = strings.TrimSpace(name)
	if name == "" || h == nil {
		return
	}
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

// Lookup resolves a handler by name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.TrimSpace(name)]
	return h, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatcher resolves tool-call batches against a registry and produces
// exactly one response per request. All responses for a batch are collected
// before Dispatch returns, so the caller sends them before processing the
// next inbound batch.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
	onCall   func(name string, args map[string]any, result any, err error)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithToolTimeout bounds each handler invocation.
func WithToolTimeout(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// WithToolObserver registers a per-call observer hook.
func WithToolObserver(fn func(name string, args map[string]any, result any, err error)) DispatcherOption {
	return func(dp *Dispatcher) { dp.onCall = fn }
}

// WithDispatcherLogger sets the dispatcher's logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(dp *Dispatcher) {
		if logger != nil {
			dp.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes a batch of tool calls and returns one response per
// request, in request order. Handlers run concurrently; an unknown name or
// a failing handler yields an error response for that call only and never
// blocks its siblings.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []protocol.ToolCallRequest) []protocol.ToolCallResponse {
	responses := make([]protocol.ToolCallResponse, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call protocol.ToolCallRequest) {
			defer wg.Done()
			responses[i] = d.execute(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return responses
}

func (d *Dispatcher) execute(ctx context.Context, call protocol.ToolCallRequest) (resp protocol.ToolCallResponse) {
	resp = protocol.ToolCallResponse{ID: call.ID, Name: call.Name}

	handler, ok := d.registry.Lookup(call.Name)
	if !ok {
		d.logger.Warn("unknown tool requested", "tool", call.Name, "call_id", call.ID)
		resp.Response = map[string]any{"error": "not implemented"}
		return resp
	}

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked", "tool", call.Name, "call_id", call.ID, "panic", r)
			resp.Response = map[string]any{"error": fmt.Sprintf("tool %s failed: %v", call.Name, r)}
		}
	}()

	result, err := handler(callCtx, call.Args)
	if d.onCall != nil {
		d.onCall(call.Name, call.Args, result, err)
	}
	if err != nil {
		d.logger.Warn("tool handler failed", "tool", call.Name, "call_id", call.ID, "error", err)
		resp.Response = map[string]any{"error": err.Error()}
		return resp
	}
	if result == nil {
		resp.Response = map[string]any{"result": "ok"}
		return resp
	}
	resp.Response = map[string]any{"result": result}
	return resp
}
