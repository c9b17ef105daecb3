package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/surveyops/backend/internal/handler"
	"github.com/surveyops/backend/internal/logging"
	"github.com/surveyops/backend/internal/notifier"
	"github.com/surveyops/backend/internal/repository"
	"github.com/surveyops/backend/internal/service"
	"github.com/surveyops/backend/internal/storage"
	"github.com/surveyops/backend/pkg/auth"
	"github.com/surveyops/backend/pkg/mailer"
)

func main() {
	// .env はローカル開発用。本番では環境変数を直接渡す
	_ = godotenv.Load()
	logging.Setup("surveyops-api")

	ctx := context.Background()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logging.Fatal("DATABASE_URL is required")
	}
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		logging.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	// リポジトリ
	projectRepo := repository.NewPgProjectRepository(pool)
	lineItemRepo := repository.NewPgLineItemRepository(pool)
	activityRepo := repository.NewPgActivityRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	mediaRepo := repository.NewPgMediaRepository(pool)
	userRepo := repository.NewPgUserRepository(pool)

	// ストレージ（ローカル or S3 互換）
	store, err := buildStorage(ctx)
	if err != nil {
		logging.Fatal("failed to initialize storage", "error", err)
	}

	// メール
	mail := mailer.NewClient(os.Getenv("MAIL_API_KEY"), os.Getenv("MAIL_WEBHOOK_SECRET"))
	notifyCfg := notifier.Config{
		FromAddress:   envOr("MAIL_FROM", "SurveyOps <no-reply@localhost>"),
		TeamInbox:     os.Getenv("TEAM_INBOX"),
		CCAddress:     os.Getenv("MAIL_CC"),
		InboundDomain: os.Getenv("INBOUND_DOMAIN"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
	}
	notify := notifier.NewEmailNotifier(mail, userRepo, notifyCfg)
	defer notify.Close()

	exchangeRate, _ := strconv.ParseFloat(os.Getenv("EXCHANGE_RATE"), 64)

	// サービス
	activityService := service.NewActivityService(activityRepo)
	projectService := service.NewProjectService(
		projectRepo, lineItemRepo, messageRepo, mediaRepo,
		activityService, store, notify, notifyCfg)
	quoteService := service.NewQuoteService(
		projectRepo, lineItemRepo, messageRepo, activityService, notify, notifyCfg, exchangeRate)
	messageService := service.NewMessageService(projectRepo, messageRepo, notify, notifyCfg)
	inboundService := service.NewInboundService(
		mail, projectRepo, messageRepo, userRepo, activityService, notify, notifyCfg)

	// ハンドラー
	healthHandler := handler.NewHealthHandler(pool)
	projectHandler := handler.NewProjectHandler(projectService)
	quoteHandler := handler.NewQuoteHandler(quoteService)
	messageHandler := handler.NewMessageHandler(messageService)
	webhookHandler := handler.NewWebhookHandler(mail, inboundService)

	// 認証ミドルウェア。AUTH_REQUIRED=false のときは開発用ダミーを使う
	wrapAuth := auth.DevAuth
	if os.Getenv("AUTH_REQUIRED") != "false" {
		secret := auth.SessionSecretBytes(os.Getenv("SESSION_SECRET"))
		resolve := func(ctx context.Context, userID string) (auth.Actor, error) {
			u, err := userRepo.FindByID(ctx, userID)
			if err != nil {
				return auth.Actor{}, err
			}
			return auth.Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}, nil
		}
		wrapAuth = auth.RequireAuth(secret, resolve)
	} else {
		slog.Warn("AUTH_REQUIRED=false: using dev actor for all requests")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", healthHandler.Check)
	mux.Handle("POST /api/comms/webhooks/inbound-email", http.HandlerFunc(webhookHandler.HandleInboundEmail))

	mux.Handle("POST /api/projects", wrapAuth(http.HandlerFunc(projectHandler.Create)))
	mux.Handle("GET /api/projects", wrapAuth(http.HandlerFunc(projectHandler.List)))
	mux.Handle("GET /api/projects/{id}", wrapAuth(http.HandlerFunc(projectHandler.Get)))
	mux.Handle("PATCH /api/projects/{id}", wrapAuth(http.HandlerFunc(projectHandler.SetFeatured)))
	mux.Handle("PUT /api/projects/{id}/status", wrapAuth(http.HandlerFunc(projectHandler.UpdateStatus)))
	mux.Handle("POST /api/projects/{id}/cancel", wrapAuth(http.HandlerFunc(projectHandler.Cancel)))

	mux.Handle("POST /api/quotes/{id}", wrapAuth(http.HandlerFunc(quoteHandler.Generate)))
	mux.Handle("POST /api/quotes/{id}/accept", wrapAuth(http.HandlerFunc(quoteHandler.Accept)))
	mux.Handle("POST /api/quotes/{id}/reject", wrapAuth(http.HandlerFunc(quoteHandler.Reject)))

	mux.Handle("GET /api/projects/{id}/messages", wrapAuth(http.HandlerFunc(messageHandler.List)))
	mux.Handle("POST /api/projects/{id}/messages", wrapAuth(http.HandlerFunc(messageHandler.Post)))

	mux.Handle("POST /api/projects/{id}/media", wrapAuth(http.HandlerFunc(projectHandler.RegisterMedia)))
	mux.Handle("POST /api/projects/{id}/attachments", wrapAuth(http.HandlerFunc(projectHandler.RegisterAttachment)))
	mux.Handle("DELETE /api/projects/{id}/media/{mediaID}", wrapAuth(http.HandlerFunc(projectHandler.DeleteMedia)))

	limiter := handler.NewRateLimiter(120, time.Minute)
	root := handler.RequestLogger(
		handler.SecurityHeaders(
			handler.CORS(strings.Split(envOr("ALLOWED_ORIGINS", "http://localhost:3000"), ","))(
				limiter.Middleware(mux))))

	port := envOr("PORT", "8080")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server failed", "error", err)
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

// buildStorage は STORAGE_DRIVER に応じたストレージ実装を返す
func buildStorage(ctx context.Context) (storage.Storage, error) {
	if os.Getenv("STORAGE_DRIVER") == "s3" {
		return storage.NewS3Storage(ctx,
			os.Getenv("STORAGE_BUCKET"), os.Getenv("STORAGE_ENDPOINT"))
	}
	return storage.NewLocalStorage(
		envOr("STORAGE_ROOT", "./uploads"),
		envOr("STORAGE_URL_PREFIX", "/uploads")), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
