package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/feedlink/internal/metrics"
	"github.com/hitoshi/feedlink/internal/middleware"
	"github.com/hitoshi/feedlink/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// メトリクス
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer

	// サービス
	ConnectService   ConnectServiceInterface
	TriggerService   TriggerServiceInterface
	ShareService     ShareServiceInterface
	SaveService      SaveServiceInterface
	SubscribeService SubscribeServiceInterface

	// ユーザー情報
	UserRepo repository.UserRepository
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders → [Session → RateLimit(General)]
//
// /health、/metrics、/ifttt/v1/statusは認証不要。
// /oauth/* はブラウザから呼ばれるためCSRF保護を追加する。
// アクションエンドポイントはAPI全般とは独立のレート制限を持つ。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	oauthHandler := NewOAuthHandler(deps.ConnectService, deps.Metrics)
	triggerHandler := NewTriggerHandler(deps.TriggerService, deps.Metrics)
	actionHandler := NewActionHandler(deps.ShareService, deps.SaveService, deps.SubscribeService, deps.Metrics)
	statusHandler := NewStatusHandler(deps.UserRepo)

	// --- 認証不要のルート ---

	r.Get("/health", statusHandler.Health)
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	r.Get("/ifttt/v1/status", statusHandler.Status)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ブラウザがdisconnect用のCSRFトークンを取得するエンドポイント
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// プロバイダー連携（ブラウザから呼ばれるためCSRF保護付き）
		r.Route("/oauth/{provider}", func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
			r.Get("/connect", oauthHandler.Connect)
			r.Post("/disconnect", oauthHandler.Disconnect)
		})

		r.Route("/ifttt/v1", func(r chi.Router) {
			// トリガー
			r.Post("/triggers/new-unread-story", triggerHandler.NewUnreadStory)
			r.Post("/triggers/new-unread-focus-story", triggerHandler.NewUnreadFocusStory)
			r.Post("/triggers/new-saved-story", triggerHandler.NewSavedStory)
			r.Post("/triggers/new-shared-story", triggerHandler.NewSharedStory)

			// トリガーフィールドの選択肢
			r.Post("/triggers/{trigger}/fields/feed_or_folder/options", triggerHandler.FeedOrFolderOptions)
			r.Post("/triggers/{trigger}/fields/story_tag/options", triggerHandler.StoryTagOptions)
			r.Post("/triggers/{trigger}/fields/blurblog_user/options", triggerHandler.BlurblogUserOptions)

			// アクション（専用レート制限を追加）
			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.ActionMiddleware())
				r.Post("/actions/share-new-story", actionHandler.ShareNewStory)
				r.Post("/actions/save-new-story", actionHandler.SaveNewStory)
				r.Post("/actions/add-new-subscription", actionHandler.AddNewSubscription)
			})

			// ユーザー情報
			r.Get("/user/info", statusHandler.UserInfo)
		})
	})

	return r
}
