package ctxutil

import "context"

type skipTraceKey struct{}

type actorKey struct{}

// WithoutTraceWrite marks ctx so that nested evaluations do not record
// another rule trace while one is being written.
func WithoutTraceWrite(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipTraceKey{}, true)
}

func SkipTraceWrite(ctx context.Context) bool {
	skip, _ := ctx.Value(skipTraceKey{}).(bool)
	return skip
}

// WithActor records who triggered the operation, for audit entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func Actor(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "system"
}
