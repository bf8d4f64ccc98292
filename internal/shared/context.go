package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user id in context. Handlers put it
// there; posting code receives it as an explicit parameter and never digs
// it out of a document.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the acting user id, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	actor, _ := ctx.Value(actorContextKey{}).(int64)
	return actor
}
