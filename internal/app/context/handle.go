package context

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
)

// Handle owns one pushed scope. Release pops it.
type Handle struct {
	ctx      context.Context
	stack    *Stack
	token    uint64
	mu       sync.Mutex
	released bool
}

// Acquire pushes a scope holding entries onto the stack carried by ctx.
// When ctx has no stack, a new one is created and attached to the returned
// context. Callers must release the handle before any enclosing handle.
func Acquire(ctx context.Context, entries Entries) (context.Context, *Handle, error) {
	stack := StackFromContext(ctx)
	if stack == nil {
		stack = NewStack()
		ctx = WithStack(ctx, stack)
	}

	token, err := stack.Push(entries)
	if err != nil {
		return ctx, nil, fmt.Errorf("acquiring history scope: %w", err)
	}

	return ctx, &Handle{ctx: ctx, stack: stack, token: token}, nil
}

// Stack returns the stack the handle's scope lives on.
func (h *Handle) Stack() *Stack {
	return h.stack
}

// Set overwrites key in the handle's own scope, even when nested scopes
// were pushed above it since. The new value is visible through them unless
// they set key themselves.
func (h *Handle) Set(key string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return ErrReleased
	}
	return h.stack.updateScope(h.token, key, value)
}

// Release pops the handle's scope. Releasing twice is a no-op.
// A nesting violation is logged and returned; the scope stays on the stack
// and the handle stays live, so Release can be retried once the scopes
// above it are gone.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}

	if err := h.stack.Pop(h.token); err != nil {
		logging.FromContext(h.ctx).Error("history scope release violated nesting",
			slog.String("context_id", h.stack.ID().String()),
			slog.Int("depth", h.stack.Depth()),
			slog.Any("error", err),
		)
		return err
	}

	h.released = true
	return nil
}

// MustRelease releases the scope and panics on a nesting violation.
func (h *Handle) MustRelease() {
	if err := h.Release(); err != nil {
		panic(fmt.Errorf("history: %w", err))
	}
}

// With runs fn inside a new scope holding entries. The scope is released on
// every exit path, including panics, which are re-raised unchanged.
func With(ctx context.Context, entries Entries, fn func(ctx context.Context) error) error {
	ctx, h, err := Acquire(ctx, entries)
	if err != nil {
		return err
	}
	defer h.MustRelease()

	return fn(ctx)
}
