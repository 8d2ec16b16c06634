package secheaders

import "context"

type actorKey struct{}

// WithActor records the id of the user performing a write. Repositories read
// it to stamp createdBy/updatedBy.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

func ActorFromContext(ctx context.Context) string {
	v, _ := ctx.Value(actorKey{}).(string)
	return v
}
