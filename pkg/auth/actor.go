package auth

import "context"

// Actor は認証済みの操作主体。ロールはプロファイルストアから解決される。
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  string // "client" | "staff"
}

// IsStaff returns true if the actor holds the staff capability.
func (a Actor) IsStaff() bool { return a.Role == "staff" }

// IsClient returns true if the actor holds the client capability.
func (a Actor) IsClient() bool { return a.Role == "client" }

type contextKey string

const actorKey contextKey = "actor"

// ActorFromContext は context から Actor を取得する
func ActorFromContext(ctx context.Context) (Actor, bool) {
	v, ok := ctx.Value(actorKey).(Actor)
	return v, ok
}

// WithActor は context に Actor をセットする
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}
