// Package context propagates request-scoped history metadata, such as the
// acting user and the request URL, so that side effects performed deep in a
// call chain can be annotated with it.
//
// # Scopes
//
// A Stack of scopes is carried on context.Context, one per request. Acquire
// pushes a scope and Release pops it; nested scopes shadow outer keys until
// they are released:
//
//	ctx, h, err := context.Acquire(ctx, context.Entries{"url": r.URL.Path})
//	if err != nil {
//	    return err
//	}
//	defer h.MustRelease()
//
// With does the same for a function body and releases on every exit path:
//
//	err := context.With(ctx, context.Entries{"job": "reindex"}, func(ctx context.Context) error {
//	    return svc.Reindex(ctx)
//	})
//
// # Reading
//
// Storage code reads the merged view without knowing who opened it:
//
//	meta := context.Effective(ctx) // {"url": "/items/7", "user": int64(42)}
//	id, _ := context.ID(ctx)       // groups every event of one request
//
// # Late binding
//
// A handle can update its own scope in place with Set. The HTTP adapter uses
// this to publish an identity that is resolved after the scope was opened,
// without growing the stack.
//
// # Goroutines
//
// Fork gives a goroutine its own stack seeded with a frozen copy of the
// caller's effective context.
package context
