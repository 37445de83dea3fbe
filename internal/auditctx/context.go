package auditctx

import "context"

type actorKey struct{}
type requestIDKey struct{}

const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
)

type Actor struct {
	Type string
	ID   string
}

// WithActor stores the acting principal in the context so audit entries can be
// attributed without threading actor arguments through every service call.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, Actor{Type: actorType, ID: actorID})
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
