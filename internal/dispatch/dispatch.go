package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/bioviz-local/biocopilot/internal/capability"
)

// HandlerError is the typed failure a capability invocation can produce.
// Handler errors and panics never propagate past the dispatcher; one broken
// capability cannot destabilize the gateway or the proposal store.
type HandlerError struct {
	Capability string
	Message    string
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("capability %s failed: %s", e.Capability, e.Message)
}

// Dispatcher invokes capability handlers with validated arguments and
// optional ambient context.
type Dispatcher struct {
	reg *capability.Registry
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(reg *capability.Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Invoke validates args against the capability's schema and runs its
// handler. Declared context parameters the caller left blank are filled
// from ambient; explicit caller values are never overwritten. The only
// error type returned is *HandlerError.
func (d *Dispatcher) Invoke(ctx context.Context, cap *capability.Capability, args, ambient map[string]any) (any, error) {
	if cap == nil {
		return nil, &HandlerError{Capability: "?", Message: "nil capability"}
	}
	resolved := d.reg.Schema(cap.Name)
	if resolved == nil {
		return nil, &HandlerError{Capability: cap.Name, Message: "capability is not registered"}
	}

	merged := mergeAmbient(cap, args, ambient)

	if err := resolved.Validate(merged); err != nil {
		return nil, &HandlerError{Capability: cap.Name, Message: fmt.Sprintf("invalid arguments: %v", err)}
	}

	return d.run(ctx, cap, merged)
}

// InvokeWithTimeout wraps Invoke with a deadline. On expiry it returns a
// timeout failure immediately; the in-flight handler keeps running in the
// background but its outcome is discarded and never reaches gateway state.
func (d *Dispatcher) InvokeWithTimeout(ctx context.Context, timeout time.Duration, cap *capability.Capability, args, ambient map[string]any) (any, error) {
	if timeout <= 0 {
		return d.Invoke(ctx, cap, args, ambient)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		res, err := d.Invoke(ctx, cap, args, ambient)
		ch <- outcome{res, err}
	}()

	select {
	case o := <-ch:
		return o.result, o.err
	case <-ctx.Done():
		name := "?"
		if cap != nil {
			name = cap.Name
		}
		return nil, &HandlerError{Capability: name, Message: "timeout"}
	}
}

// run calls the handler with panic containment.
func (d *Dispatcher) run(ctx context.Context, cap *capability.Capability, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &HandlerError{Capability: cap.Name, Message: fmt.Sprintf("handler panic: %v", r)}
		}
	}()

	res, herr := cap.Handler(ctx, args)
	if herr != nil {
		return nil, &HandlerError{Capability: cap.Name, Message: herr.Error()}
	}
	return res, nil
}

// mergeAmbient copies args and fills blank declared context parameters
// from ambient under the matching key.
func mergeAmbient(cap *capability.Capability, args, ambient map[string]any) map[string]any {
	merged := make(map[string]any, len(args))
	for k, v := range args {
		merged[k] = v
	}
	if ambient == nil {
		return merged
	}
	for _, key := range cap.ContextKeys {
		if !blank(merged[key]) {
			continue
		}
		if v, ok := ambient[key]; ok && !blank(v) {
			merged[key] = v
		}
	}
	return merged
}

// blank reports whether a caller-supplied value counts as "left blank":
// absent, nil, an empty string, or an empty map/slice.
func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
