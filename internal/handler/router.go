package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ArunimaSaha23/AgriIQ/internal/metrics"
	"github.com/ArunimaSaha23/AgriIQ/internal/middleware"
	"github.com/ArunimaSaha23/AgriIQ/internal/upload"
)

// HealthChecker はヘルスチェックで使用する疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder

	// 運用エンドポイント
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// アップロード配信
	Uploads *upload.Receiver

	// ドメインサービス
	UserService   UserServiceInterface
	ReportService ReportServiceInterface

	// multipartフォームのメモリ上限（バイト）
	MaxUploadSize int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → Logging → (保護ルートのみ) TokenAuth → RateLimit
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))

	userHandler := NewUserHandler(deps.UserService, deps.MaxUploadSize)
	reportHandler := NewReportHandler(deps.ReportService, deps.MaxUploadSize)

	// --- 認証不要のルート ---

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("API Working"))
	})

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
			deps.Logger.Error("health check failed", slog.String("error", err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// アップロード済み画像の配信
	r.Get("/uploads/{filename}", deps.Uploads.ServeFile)

	// ユーザー登録・ログイン
	r.Post("/api/user/register", userHandler.Register)
	r.Post("/api/user/login", userHandler.Login)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: TokenAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール管理
		r.Route("/api/user", func(r chi.Router) {
			r.Get("/get-profile", userHandler.GetProfile)

			// POST /api/user/update-profile - 画像を含むためアップロード専用レート制限を追加
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/update-profile", userHandler.UpdateProfile)
		})

		// 診断レポート管理
		r.Route("/api/report", func(r chi.Router) {
			// POST /api/report - 推論を伴うためアップロード専用レート制限を追加
			r.With(deps.RateLimiter.UploadMiddleware()).Post("/", reportHandler.Create)

			r.Get("/", reportHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", reportHandler.Get)
				r.Put("/", reportHandler.UpdateNotes)
				r.Delete("/", reportHandler.Delete)
			})
		})
	})

	return r
}
