// Package middleware はHTTPミドルウェアと認証ガードを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/furikaeri/internal/auth"
	"github.com/hitoshi/furikaeri/internal/model"
)

// CallerHandlerFunc は認証済みの呼び出し元を明示的に受け取るハンドラー。
type CallerHandlerFunc func(w http.ResponseWriter, r *http.Request, caller auth.Caller)

// IdentitySyncer は検証済みの呼び出し元をユーザーレコードに反映する。
type IdentitySyncer interface {
	SyncIdentity(ctx context.Context, data model.CreateUserData) error
}

// Guard は呼び出し元を解決し、レート制限とユーザー同期を行ってからハンドラーを呼び出す。
// 呼び出し元はコンテキストに格納せず、ハンドラーの引数として渡す。
type Guard struct {
	resolver  auth.Resolver
	syncer    IdentitySyncer
	limiter   *RateLimiter
	responder *ErrorResponder
}

// NewGuard はGuardを生成する。syncerとlimiterはnilでもよい。
func NewGuard(resolver auth.Resolver, syncer IdentitySyncer, limiter *RateLimiter, responder *ErrorResponder) *Guard {
	return &Guard{
		resolver:  resolver,
		syncer:    syncer,
		limiter:   limiter,
		responder: responder,
	}
}

// Require は認証必須のハンドラーを返す。未認証の場合は401を返す。
func (g *Guard) Require(h CallerHandlerFunc) http.HandlerFunc {
	return g.require(h, ScopeGeneral)
}

// RequireGeneration は振り返り生成用のハンドラーを返す。
// API全般の制限に加えて振り返り生成の制限を適用する。
func (g *Guard) RequireGeneration(h CallerHandlerFunc) http.HandlerFunc {
	return g.require(h, ScopeGeneral, ScopeGenerate)
}

func (g *Guard) require(h CallerHandlerFunc, scopes ...RateLimitScope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := g.resolver.Resolve(r)
		if err != nil || caller.UserID == "" {
			if err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
				slog.Error("failed to resolve caller", slog.String("error", err.Error()))
			} else if err != nil {
				slog.Debug("authentication failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
			}
			g.responder.WriteError(w, r, model.NewAuthenticationError("認証が必要です", nil))
			return
		}

		annotateUserID(w, caller.UserID)

		if g.limiter != nil {
			for _, scope := range scopes {
				if !g.limiter.Allow(scope, caller.UserID) {
					slog.Warn("rate limit exceeded",
						slog.String("user_id", caller.UserID),
						slog.String("limit_type", string(scope)),
					)
					writeRateLimitResponse(w, r, g.responder, scope, g.limiter.RetryAfter(scope))
					return
				}
			}
		}

		if g.syncer != nil {
			if err := g.syncer.SyncIdentity(r.Context(), model.CreateUserData{
				ID:        caller.UserID,
				Email:     caller.Email,
				Name:      caller.Name,
				AvatarURL: caller.AvatarURL,
			}); err != nil {
				g.responder.WriteError(w, r, err)
				return
			}
		}

		h(w, r, caller)
	}
}
