package audit

import "context"

// Actor is who performed an operation and from where.
type Actor struct {
	UserID *uint
	IP     string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored in ctx, or the zero Actor (system).
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}

// UserPtr returns a copy of the user id pointer, safe to store on models.
func (a Actor) UserPtr() *uint {
	if a.UserID == nil {
		return nil
	}
	id := *a.UserID
	return &id
}
