package context

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type stackKey struct{}

// scope is one pushed layer of entries.
type scope struct {
	token   uint64
	entries Entries
}

// Stack is the ordered set of history scopes owned by one request.
// Scopes are pushed and popped in strict LIFO order; Effective merges them
// with later scopes winning on key collision.
type Stack struct {
	id     uuid.UUID
	mu     sync.RWMutex
	scopes []scope
	next   uint64
}

// NewStack creates an empty stack with a fresh context ID.
func NewStack() *Stack {
	return &Stack{id: uuid.New()}
}

// ID returns the identifier shared by every scope of this stack.
func (s *Stack) ID() uuid.UUID {
	return s.id
}

// Push appends a new scope holding entries and returns its token.
func (s *Stack) Push(entries Entries) (uint64, error) {
	normalized, err := entries.normalize()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.scopes = append(s.scopes, scope{token: s.next, entries: normalized})
	return s.next, nil
}

// Pop removes the top scope, which must be the one identified by token.
func (s *Stack) Pop(token uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.scopes)
	if n == 0 {
		return ErrEmptyStack
	}
	if s.scopes[n-1].token != token {
		return ErrNotTop
	}

	s.scopes[n-1] = scope{}
	s.scopes = s.scopes[:n-1]
	return nil
}

// UpdateTop overwrites key in the top scope without pushing a new one.
func (s *Stack) UpdateTop(key string, value any) error {
	nv, err := normalizeValue(value)
	if err != nil {
		return ErrUnsupportedValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.scopes)
	if n == 0 {
		return ErrEmptyStack
	}
	s.scopes[n-1].entries[key] = nv
	return nil
}

// updateScope overwrites key in the scope identified by token, wherever it
// sits in the stack. Scopes pushed above it still shadow the key until they
// are popped.
func (s *Stack) updateScope(token uint64, key string, value any) error {
	nv, err := normalizeValue(value)
	if err != nil {
		return ErrUnsupportedValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.scopes) == 0 {
		return ErrEmptyStack
	}
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if s.scopes[i].token == token {
			s.scopes[i].entries[key] = nv
			return nil
		}
	}
	return ErrReleased
}

// Effective returns the merged view of all scopes. The result is a new map.
func (s *Stack) Effective() Entries {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Entries)
	for _, sc := range s.scopes {
		for k, v := range sc.entries {
			out[k] = v
		}
	}
	return out
}

// Depth returns the number of live scopes.
func (s *Stack) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scopes)
}

// WithStack stores s in ctx.
func WithStack(ctx context.Context, s *Stack) context.Context {
	return context.WithValue(ctx, stackKey{}, s)
}

// StackFromContext extracts the stack, returns nil if not present.
func StackFromContext(ctx context.Context) *Stack {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(stackKey{}).(*Stack); ok {
		return s
	}
	return nil
}

// Effective returns the merged history context for ctx.
// It is empty (never nil) when no stack is attached.
func Effective(ctx context.Context) Entries {
	s := StackFromContext(ctx)
	if s == nil {
		return Entries{}
	}
	return s.Effective()
}

// ID returns the context ID of the stack in ctx.
func ID(ctx context.Context) (uuid.UUID, bool) {
	s := StackFromContext(ctx)
	if s == nil {
		return uuid.Nil, false
	}
	return s.id, true
}

// Fork returns a context carrying a new stack seeded with a frozen copy of the
// effective context of ctx. Use it before handing ctx to another goroutine
// whose scopes must stay independent of the parent's.
func Fork(ctx context.Context) context.Context {
	parent := StackFromContext(ctx)
	if parent == nil {
		return ctx
	}

	child := &Stack{id: parent.id}
	if eff := parent.Effective(); len(eff) > 0 {
		child.next = 1
		child.scopes = []scope{{token: 1, entries: eff}}
	}
	return WithStack(ctx, child)
}
