package service

import (
	"context"

	"github.com/surveyops/backend/pkg/auth"
)

// requireActor は context から Actor を取り出す。未認証なら ErrUnauthenticated
func requireActor(ctx context.Context) (auth.Actor, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return auth.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

// requireStaff はスタッフ権限を要求する
func requireStaff(ctx context.Context) (auth.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return auth.Actor{}, err
	}
	if !actor.IsStaff() {
		return auth.Actor{}, ErrForbidden
	}
	return actor, nil
}

// canAccessProject は案件の参照権限を判定する。
// スタッフは全件、クライアントは自分の案件のみ。
func canAccessProject(actor auth.Actor, clientID string) bool {
	return actor.IsStaff() || actor.ID == clientID
}
