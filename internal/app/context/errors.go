package context

import "errors"

var (
	// ErrEmptyStack is returned when popping or updating a stack with no scopes.
	ErrEmptyStack = errors.New("history context stack is empty")

	// ErrNotTop is returned when a scope is released while another scope
	// sits above it. It means acquire/release nesting was violated.
	ErrNotTop = errors.New("history scope is not the top of the stack")

	// ErrReleased is returned when updating a handle that was already released.
	ErrReleased = errors.New("history scope already released")

	// ErrUnsupportedValue is returned when an entry value is not a serializable scalar.
	ErrUnsupportedValue = errors.New("unsupported history context value")
)
