package middleware

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/gin-gonic/gin"
)

// ContextKeyIdentity is the gin context key holding the caller identity.
const ContextKeyIdentity = "identity"

// contextKeyHistoryRequest is the gin context key holding the *Request decorator.
const contextKeyHistoryRequest = "history_request"

// Transport identifies the request type a Request decorates.
type Transport int

const (
	// TransportHTTP is a plain *http.Request served by a net/http handler chain.
	TransportHTTP Transport = iota + 1
	// TransportGin is a *gin.Context.
	TransportGin
)

// String returns the transport name.
func (t Transport) String() string {
	switch t {
	case TransportHTTP:
		return "net/http"
	case TransportGin:
		return "gin"
	default:
		return "unknown"
	}
}

// IdentityObserver is notified with the raw value every time the identity
// of a request is assigned.
type IdentityObserver func(identity any)

// Request decorates a transport request with an observable identity field.
// Everything other than the identity is read through from the underlying request.
type Request struct {
	transport Transport
	http      *http.Request
	gin       *gin.Context

	mu        sync.RWMutex
	ctx       context.Context
	identity  any
	observers []IdentityObserver
}

// WrapRequest returns the decorator for r. r must be a *http.Request or a
// *gin.Context; any other value returns false. A decorator already attached
// to r is returned as is.
func WrapRequest(r any) (*Request, bool) {
	switch req := r.(type) {
	case *gin.Context:
		if req == nil || req.Request == nil {
			return nil, false
		}
		if existing := RequestFromGin(req); existing != nil {
			return existing, true
		}
		identity, _ := req.Get(ContextKeyIdentity)
		return &Request{transport: TransportGin, gin: req, identity: identity}, true
	case *http.Request:
		if req == nil {
			return nil, false
		}
		if existing := RequestFromContext(req.Context()); existing != nil {
			return existing, true
		}
		return &Request{transport: TransportHTTP, http: req, identity: IdentityFromContext(req.Context())}, true
	default:
		return nil, false
	}
}

// Transport returns the decorated request type.
func (r *Request) Transport() Transport {
	return r.transport
}

// Method returns the HTTP method.
func (r *Request) Method() string {
	return r.underlying().Method
}

// Path returns the URL path without the query string.
func (r *Request) Path() string {
	return r.underlying().URL.Path
}

// Context returns the context the decorator was attached with, or the
// underlying request's context when it has not been attached yet.
func (r *Request) Context() context.Context {
	r.mu.RLock()
	ctx := r.ctx
	r.mu.RUnlock()

	if ctx != nil {
		return ctx
	}
	return r.underlying().Context()
}

// Identity returns the last assigned identity.
func (r *Request) Identity() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.identity
}

// SetIdentity stores v as the request identity and then notifies every observer.
func (r *Request) SetIdentity(v any) {
	r.mu.Lock()
	r.identity = v
	observers := slices.Clone(r.observers)
	r.mu.Unlock()

	if r.gin != nil {
		r.gin.Set(ContextKeyIdentity, v)
	}

	for _, observe := range observers {
		observe(v)
	}
}

// Observe registers fn to be called on every later identity assignment.
func (r *Request) Observe(fn IdentityObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// attach makes the decorator reachable from ctx (and from the gin context)
// and returns the derived context.
func (r *Request) attach(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, ctxKeyHistoryRequest, r)

	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	if r.gin != nil {
		r.gin.Set(contextKeyHistoryRequest, r)
	}
	return ctx
}

func (r *Request) underlying() *http.Request {
	if r.gin != nil {
		return r.gin.Request
	}
	return r.http
}

// RequestFromContext returns the decorator attached to ctx, or nil.
func RequestFromContext(ctx context.Context) *Request {
	if ctx == nil {
		return nil
	}
	req, _ := ctx.Value(ctxKeyHistoryRequest).(*Request)
	return req
}

// RequestFromGin returns the decorator attached to c, or nil.
func RequestFromGin(c *gin.Context) *Request {
	if v, ok := c.Get(contextKeyHistoryRequest); ok {
		if req, ok := v.(*Request); ok {
			return req
		}
	}
	if c.Request == nil {
		return nil
	}
	return RequestFromContext(c.Request.Context())
}

// SetIdentity assigns the caller identity of a gin request. When the history
// boundary is installed the open scope picks up the new value; otherwise the
// value is only stored under ContextKeyIdentity.
func SetIdentity(c *gin.Context, v any) {
	if req := RequestFromGin(c); req != nil {
		req.SetIdentity(v)
		return
	}
	c.Set(ContextKeyIdentity, v)
}

// GetIdentity returns the caller identity of a gin request, or nil.
func GetIdentity(c *gin.Context) any {
	v, _ := c.Get(ContextKeyIdentity)
	return v
}

// SetRequestIdentity assigns the caller identity of a net/http request.
// It reports false when no history boundary is installed for r.
func SetRequestIdentity(r *http.Request, v any) bool {
	req := RequestFromContext(r.Context())
	if req == nil {
		return false
	}
	req.SetIdentity(v)
	return true
}
