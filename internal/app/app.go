package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hitoshi/feedlink/internal/action"
	"github.com/hitoshi/feedlink/internal/config"
	"github.com/hitoshi/feedlink/internal/database"
	"github.com/hitoshi/feedlink/internal/feedresolver"
	"github.com/hitoshi/feedlink/internal/handler"
	"github.com/hitoshi/feedlink/internal/logger"
	"github.com/hitoshi/feedlink/internal/metrics"
	"github.com/hitoshi/feedlink/internal/middleware"
	"github.com/hitoshi/feedlink/internal/oauth"
	"github.com/hitoshi/feedlink/internal/queue"
	"github.com/hitoshi/feedlink/internal/readstate"
	"github.com/hitoshi/feedlink/internal/repository"
	"github.com/hitoshi/feedlink/internal/security"
	"github.com/hitoshi/feedlink/internal/trigger"
	"github.com/hitoshi/feedlink/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB・Redis・NATSへの接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. Redis接続（既読状態ストア）
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established")

	// 3. NATS接続（ジョブ・イベント発行）
	nc, err := nats.Connect(cfg.NATSURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Drain()

	slog.Info("NATS connection established")

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	linkRepo := repository.NewPostgresIdentityLinkRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	feedRepo := repository.NewPostgresFeedRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)
	folderRepo := repository.NewPostgresFolderRepo(db)
	storyRepo := repository.NewPostgresStoryRepo(db)
	starredRepo := repository.NewPostgresStarredStoryRepo(db)
	sharedRepo := repository.NewPostgresSharedStoryRepo(db)
	socialRepo := repository.NewPostgresSocialSubRepo(db)
	classifierRepo := repository.NewPostgresClassifierRepo(db)

	// 5. インフラサービスの初期化
	readStore := readstate.NewRedisStore(redisClient)
	publisher := queue.NewNatsPublisher(nc)
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 6. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 7. プロバイダーアダプターの初期化
	// 資格情報が未設定のプロバイダーは連携を受け付けない
	adapters := buildProviderAdapters(cfg)
	for _, adapter := range adapters {
		slog.Info("provider enabled", slog.String("provider", string(adapter.Provider())))
	}

	// 8. ドメインサービスの初期化
	conflict := oauth.NewConflictResolver(userRepo, linkRepo)
	connectService := oauth.NewConnectService(adapters, linkRepo, conflict, publisher)

	triggerService := trigger.NewService(
		subRepo, folderRepo, feedRepo, storyRepo, starredRepo,
		sharedRepo, socialRepo, classifierRepo, userRepo, readStore,
	)

	resolver := feedresolver.NewResolver(feedRepo, ssrfGuard, cfg.FetchTimeout)
	shareService := action.NewShareService(resolver, sharedRepo, socialRepo, readStore, sanitizer, publisher, cfg.BaseURL)
	saveService := action.NewSaveService(resolver, starredRepo, sanitizer)
	subscribeService := action.NewSubscribeService(resolver, subRepo, folderRepo)

	// 9. ルーターの構築
	// 設定値はreq/min単位のため、リミッターのreq/secに変換する
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		ActionRate:      rate.Limit(float64(cfg.RateLimitAction) / 60.0),
		ActionBurst:     cfg.RateLimitAction,
		CleanupInterval: 5 * time.Minute,
	})
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		SessionFinder:     sessionRepo,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.BaseURL,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:   slog.Default(),
		Metrics:  collector,
		Gatherer: registry,

		ConnectService:   connectService,
		TriggerService:   triggerService,
		ShareService:     shareService,
		SaveService:      saveService,
		SubscribeService: subscribeService,

		UserRepo: userRepo,
	})

	// 10. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// 日次クリーンアップジョブをバックグラウンドで実行
	go runCleanupLoop(ctx, cleanup.NewCleanupJob(db, slog.Default()))

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildProviderAdapters は資格情報が設定されたプロバイダーのアダプターを構築する。
func buildProviderAdapters(cfg *config.Config) []oauth.ProviderAdapter {
	var adapters []oauth.ProviderAdapter

	if cfg.TwitterConsumerKey != "" && cfg.TwitterConsumerSecret != "" {
		adapters = append(adapters, oauth.NewTwitterAdapter(oauth.TwitterConfig{
			ConsumerKey:    cfg.TwitterConsumerKey,
			ConsumerSecret: cfg.TwitterConsumerSecret,
			CallbackURL:    cfg.BaseURL + "/oauth/twitter/connect",
		}))
	}

	if cfg.FacebookAppID != "" && cfg.FacebookAppSecret != "" {
		adapters = append(adapters, oauth.NewFacebookAdapter(oauth.FacebookConfig{
			AppID:       cfg.FacebookAppID,
			AppSecret:   cfg.FacebookAppSecret,
			RedirectURL: cfg.BaseURL + "/oauth/facebook/connect",
		}))
	}

	if cfg.AppDotNetClientID != "" && cfg.AppDotNetClientSecret != "" {
		adapters = append(adapters, oauth.NewAppDotNetAdapter(oauth.AppDotNetConfig{
			ClientID:     cfg.AppDotNetClientID,
			ClientSecret: cfg.AppDotNetClientSecret,
			RedirectURL:  cfg.BaseURL + "/oauth/appdotnet/connect",
		}))
	}

	return adapters
}

// runCleanupLoop はクリーンアップジョブを起動直後と以降24時間ごとに実行する。
func runCleanupLoop(ctx context.Context, job *cleanup.CleanupJob) {
	if err := job.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
