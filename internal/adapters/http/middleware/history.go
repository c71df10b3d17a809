package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appctx "github.com/jsamuelsen/go-history-context/internal/app/context"
	"github.com/jsamuelsen/go-history-context/internal/platform/config"
	"github.com/jsamuelsen/go-history-context/internal/platform/logging"
	"github.com/jsamuelsen/go-history-context/internal/platform/telemetry"
)

// HistoryRecorder receives history boundary events. *telemetry.HistoryMetrics
// implements it.
type HistoryRecorder interface {
	ScopeOpened()
	ScopeSkipped()
	ScopeFailed()
	IdentityRebound()
}

// HistoryConfig configures the history boundary.
type HistoryConfig struct {
	// Methods eligible for a history scope. Empty means config.DefaultHistoryMethods.
	Methods []string

	// Recorder is optional.
	Recorder HistoryRecorder
}

// History returns gin middleware that opens a history scope holding the
// request URL path and the caller identity for every eligible request.
// Identity assigned later in the chain through SetIdentity replaces the
// user entry of the open scope. The scope is released when the chain
// returns, aborts or panics.
func History(cfg HistoryConfig) gin.HandlerFunc {
	b := newHistoryBoundary(cfg)

	return func(c *gin.Context) {
		req, _ := WrapRequest(c)
		prev := c.Request.Context()

		b.serve(req, func(ctx context.Context) {
			if ctx != prev {
				c.Request = c.Request.WithContext(ctx)
				defer func() { c.Request = c.Request.WithContext(prev) }()
			}
			c.Next()
		})
	}
}

// HistoryHandler is History for net/http handler chains.
func HistoryHandler(cfg HistoryConfig) func(http.Handler) http.Handler {
	b := newHistoryBoundary(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, _ := WrapRequest(r)
			prev := r.Context()

			b.serve(req, func(ctx context.Context) {
				if ctx != prev {
					r = r.WithContext(ctx)
				}
				next.ServeHTTP(w, r)
			})
		})
	}
}

type historyBoundary struct {
	methods  map[string]struct{}
	recorder HistoryRecorder
}

func newHistoryBoundary(cfg HistoryConfig) *historyBoundary {
	methods := cfg.Methods
	if len(methods) == 0 {
		methods = config.DefaultHistoryMethods
	}

	b := &historyBoundary{
		methods:  make(map[string]struct{}, len(methods)),
		recorder: cfg.Recorder,
	}
	for _, m := range methods {
		b.methods[strings.ToUpper(strings.TrimSpace(m))] = struct{}{}
	}
	if b.recorder == nil {
		b.recorder = (*telemetry.HistoryMetrics)(nil)
	}
	return b
}

func (b *historyBoundary) eligible(method string) bool {
	_, ok := b.methods[strings.ToUpper(method)]
	return ok
}

// serve runs next inside a history scope. next always runs exactly once.
func (b *historyBoundary) serve(req *Request, next func(ctx context.Context)) {
	ctx := req.Context()

	if !b.eligible(req.Method()) {
		b.recorder.ScopeSkipped()
		next(ctx)
		return
	}

	scopeCtx, handle, err := appctx.Acquire(ctx, appctx.Entries{
		appctx.KeyUser: appctx.IdentityValue(req.Identity()),
		appctx.KeyURL:  req.Path(),
	})
	if err != nil {
		b.recorder.ScopeFailed()
		logging.FromContext(ctx).ErrorContext(ctx, "opening history scope",
			slog.String("path", req.Path()),
			slog.Any("error", err),
		)
		next(ctx)
		return
	}
	defer handle.MustRelease()
	b.recorder.ScopeOpened()

	if id, ok := appctx.ID(scopeCtx); ok {
		scopeCtx = logging.WithAttrs(scopeCtx, slog.String("context_id", id.String()))
	}
	scopeCtx = req.attach(scopeCtx)
	req.Observe(b.rebind(scopeCtx, handle))

	next(scopeCtx)

	entries := handle.Stack().Effective()
	telemetry.AnnotateHistory(scopeCtx, entries)
	logging.FromContext(scopeCtx).DebugContext(scopeCtx, "history scope closed",
		slog.Any("user", entries[appctx.KeyUser]),
		slog.Any("url", entries[appctx.KeyURL]),
	)
}

// rebind returns the observer that folds a late identity into the scope.
func (b *historyBoundary) rebind(ctx context.Context, handle *appctx.Handle) IdentityObserver {
	return func(identity any) {
		err := handle.Set(appctx.KeyUser, appctx.IdentityValue(identity))
		switch {
		case err == nil:
			b.recorder.IdentityRebound()
		case errors.Is(err, appctx.ErrReleased):
			logging.FromContext(ctx).DebugContext(ctx, "identity assigned after history scope closed")
		default:
			logging.FromContext(ctx).WarnContext(ctx, "updating history identity", slog.Any("error", err))
		}
	}
}
