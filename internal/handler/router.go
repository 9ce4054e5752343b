// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/furikaeri/internal/database"
	"github.com/hitoshi/furikaeri/internal/middleware"
	"github.com/hitoshi/furikaeri/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Responder         *middleware.ErrorResponder
	Guard             *middleware.Guard
	CORSAllowedOrigin string
	HTTPMetrics       middleware.HTTPMetricsRecorder
	MetricsHandler    http.Handler

	// ヘルスチェック
	DB database.Pinger

	// 入力検証
	URLGuard security.URLGuard

	// サービス
	UserService    UserServiceInterface
	PostService    PostServiceInterface
	SummaryService SummaryServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Metrics → Recovery → SecurityHeaders → CORS → Guard(ルートごと)
//
// GET / と GET /health、GET /metrics は認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewRecoveryMiddleware(deps.Responder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(deps.Responder.NotFound)
	r.MethodNotAllowed(deps.Responder.MethodNotAllowed)

	healthHandler := NewHealthHandler(deps.DB)
	userHandler := NewUserHandler(deps.UserService, deps.URLGuard, deps.Responder)
	postHandler := NewPostHandler(deps.PostService, deps.URLGuard, deps.Responder)
	summaryHandler := NewSummaryHandler(deps.SummaryService, deps.Responder)

	guard := deps.Guard

	// --- 認証不要のルート ---
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	r.Route("/users/me", func(r chi.Router) {
		r.Get("/", guard.Require(userHandler.GetMe))
		r.Patch("/", guard.Require(userHandler.UpdateMe))
		r.Delete("/", guard.Require(userHandler.DeleteMe))
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", guard.Require(postHandler.ListPosts))
		r.Post("/", guard.Require(postHandler.CreatePost))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", guard.Require(postHandler.GetPost))
			r.Patch("/", guard.Require(postHandler.UpdatePost))
			r.Delete("/", guard.Require(postHandler.DeletePost))
		})
	})

	r.Route("/summaries", func(r chi.Router) {
		r.Get("/", guard.Require(summaryHandler.ListSummaries))

		// 振り返り生成は専用のレート制限を追加で適用する
		r.Post("/generate/weekly", guard.RequireGeneration(summaryHandler.GenerateWeekly))
		r.Post("/generate/monthly", guard.RequireGeneration(summaryHandler.GenerateMonthly))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", guard.Require(summaryHandler.GetSummary))
			r.Delete("/", guard.Require(summaryHandler.DeleteSummary))
		})
	})

	return r
}
