// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/furikaeri/internal/auth"
	"github.com/hitoshi/furikaeri/internal/config"
	"github.com/hitoshi/furikaeri/internal/database"
	"github.com/hitoshi/furikaeri/internal/handler"
	"github.com/hitoshi/furikaeri/internal/logger"
	"github.com/hitoshi/furikaeri/internal/metrics"
	"github.com/hitoshi/furikaeri/internal/middleware"
	"github.com/hitoshi/furikaeri/internal/post"
	"github.com/hitoshi/furikaeri/internal/repository"
	"github.com/hitoshi/furikaeri/internal/security"
	"github.com/hitoshi/furikaeri/internal/summary"
	"github.com/hitoshi/furikaeri/internal/user"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、設定に従ってJSON構造化ログを再構成する。
// 戻り値のio.Closerはログファイルを閉じるためのもので、ファイル出力がない場合はnil。
func Init(w io.Writer) (*config.Config, io.Closer, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .env → 環境変数の順に設定を読み込む
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベル・ファイル出力を反映
	_, closer := logger.Init(w, logger.Options{
		Level:         cfg.LogLevel,
		File:          cfg.LogFile,
		RetentionDays: cfg.LogRetentionDays,
	})

	return cfg, closer, nil
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

	cfg, closer, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスレジストリ（プロセス・ランタイムのメトリクスも併せて公開する）
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, cleanup, err := buildRouter(cfg, db, reg, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	// 3. HTTPサーバーの起動
	// 生成バックエンドの待ち時間を含むため、WriteTimeoutは生成タイムアウトより長くとる
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SummaryGeneratorTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildRouter はリポジトリからハンドラーまでを組み立て、ルーターを返す。
// 戻り値のcleanupはレート制限のクリーンアップgoroutineを停止する。
func buildRouter(cfg *config.Config, db *sql.DB, reg prometheus.Registerer, gatherer prometheus.Gatherer) (http.Handler, func(), error) {
	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	summaryRepo := repository.NewPostgresSummaryRepo(db)

	// セキュリティ
	urlGuard := security.NewURLGuard()
	sanitizer := security.NewContentSanitizer()

	collector := metrics.NewCollector(reg)

	generator, err := newGenerator(cfg, urlGuard)
	if err != nil {
		return nil, nil, err
	}

	// ドメインサービス
	userService := user.NewService(userRepo)
	postService := post.NewService(postRepo, sanitizer, collector)
	summaryService := summary.NewService(summaryRepo, postRepo, generator, collector)

	resolver, err := auth.NewResolver(cfg.Environment, cfg.LocalUserID, auth.JWTConfig{
		Secret:       cfg.JWTSecret,
		PublicKeyPEM: cfg.JWTPublicKey,
		Issuer:       cfg.JWTIssuer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create identity resolver: %w", err)
	}

	responder := middleware.NewErrorResponder(cfg.Environment)
	limiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitGenerate),
		collector,
	)
	guard := middleware.NewGuard(resolver, userService, limiter, responder)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Responder:         responder,
		Guard:             guard,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		HTTPMetrics:       collector,
		MetricsHandler:    metrics.Handler(gatherer),
		DB:                db,
		URLGuard:          urlGuard,
		UserService:       userService,
		PostService:       postService,
		SummaryService:    summaryService,
	})

	return router, limiter.Stop, nil
}

// newGenerator は設定に応じた振り返り本文の生成器を返す。
// SUMMARY_GENERATOR_URL が未設定の場合はnilを返し、サービス側でテンプレート生成を使う。
// local環境以外ではSSRF対策付きクライアントを使うため、プライベートアドレスの生成バックエンドは使えない。
func newGenerator(cfg *config.Config, urlGuard security.URLGuard) (summary.Generator, error) {
	if cfg.SummaryGeneratorURL == "" {
		slog.Info("summary generator not configured, using template generator")
		return nil, nil
	}

	if cfg.IsLocal() {
		slog.Warn("using unrestricted HTTP client for summary generator (local)",
			slog.String("url", cfg.SummaryGeneratorURL),
		)
		client := &http.Client{Timeout: cfg.SummaryGeneratorTimeout}
		return summary.NewHTTPGenerator(cfg.SummaryGeneratorURL, client), nil
	}

	if err := urlGuard.ValidateURL(cfg.SummaryGeneratorURL); err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_GENERATOR_URL: %w", err)
	}
	client := urlGuard.NewSafeClient(cfg.SummaryGeneratorTimeout)
	return summary.NewHTTPGenerator(cfg.SummaryGeneratorURL, client), nil
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
