package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

// ResolveActorFunc はユーザーIDからプロファイル（名前・メール・ロール）を引く
type ResolveActorFunc func(ctx context.Context, userID string) (Actor, error)

// RequireAuth は認証必須ミドルウェア。セッションを検証し、プロファイルを
// 解決して Actor を context にセットする
func RequireAuth(sessionSecret []byte, resolve ResolveActorFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName())
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			userID, err := VerifySessionToken(cookie.Value, sessionSecret)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_session"})
				return
			}

			actor, err := resolve(r.Context(), userID)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown_profile"})
				return
			}

			ctx := WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevActor は開発用のダミー Actor（AUTH_REQUIRED=false 時に使用）
var DevActor = Actor{ID: "dev-user-id", Name: "Dev User", Email: "dev@localhost", Role: "staff"}

// DevAuth は開発用ミドルウェア。ダミー Actor を context にセットする
func DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithActor(r.Context(), DevActor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
