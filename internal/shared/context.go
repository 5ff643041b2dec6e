package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user id in context. Role checks happen
// upstream at the gateway; the services here only record identity.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the acting user id, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	actorID, _ := ctx.Value(actorContextKey{}).(int64)
	return actorID
}
