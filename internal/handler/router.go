package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/userman/internal/metrics"
	"github.com/hitoshi/userman/internal/middleware"
	"github.com/hitoshi/userman/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	RequestTimeout     time.Duration

	// メトリクス。HTTPMetricsがnilの場合は記録しない。
	// MetricsGathererがnilの場合は/metricsを公開しない。
	HTTPMetrics     middleware.HTTPMetricsRecorder
	MetricsGatherer prometheus.Gatherer

	// ヘルスチェック
	HealthChecker HealthChecker

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS → Metrics
//
// /api/* にはさらに RateLimit(General) → Timeout を適用し、
// 更新系（POST/PUT/DELETE）には RateLimit(Write) を追加する。
// /health と /metrics はレート制限の対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeRouteNotFound,
			Message:  "指定されたエンドポイントは存在しません。",
			Category: "system",
			Action:   "URLを確認してください。",
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
			Code:     model.ErrCodeMethodNotAllowed,
			Message:  "このエンドポイントでは指定されたメソッドを使用できません。",
			Category: "system",
			Action:   "HTTPメソッドを確認してください。",
		})
	})

	// --- 運用系のルート ---
	healthHandler := NewHealthHandler(deps.HealthChecker)
	r.Get("/health", healthHandler.Health)
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- APIルート ---
	userHandler := NewUserHandler(deps.UserService)
	r.Group(func(r chi.Router) {
		var writeMiddleware func(http.Handler) http.Handler
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
			writeMiddleware = deps.RateLimiter.WriteMiddleware()
		}
		r.Use(middleware.NewTimeoutMiddleware(deps.RequestTimeout))

		mountUserRoutes(r, userHandler, writeMiddleware)
	})

	return r
}
