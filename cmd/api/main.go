package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fiscus-api/internal/config"
	"github.com/fiscus-api/internal/infrastructure/dynamo"
	"github.com/fiscus-api/internal/infrastructure/google"
	jwtinfra "github.com/fiscus-api/internal/infrastructure/jwt"
	s3infra "github.com/fiscus-api/internal/infrastructure/s3"
	"github.com/fiscus-api/internal/infrastructure/smtp"
	"github.com/fiscus-api/internal/infrastructure/sns"
	"github.com/fiscus-api/internal/pkg/hash"
	"github.com/fiscus-api/internal/telemetry"
	transporthttp "github.com/fiscus-api/internal/transport/http"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "fiscus-api"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.Tables())

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}
	scoped, err := jwtinfra.NewScopedIssuer(cfg.ScopedTokenSecret)
	if err != nil {
		log.Fatalf("scoped token issuer: %v", err)
	}

	var mail transporthttp.MailDispatcher
	switch cfg.MailDriver {
	case "sns":
		d, err := sns.NewDispatcher(ctx, cfg)
		if err != nil {
			log.Fatalf("sns dispatcher: %v", err)
		}
		mail = d
	default:
		mail = smtp.NewDispatcher(cfg)
	}

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("s3: %v", err)
	}

	deps := &transporthttp.Deps{
		UserRepo:        dynamo.NewUserRepo(dynamoClient, cfg.TableUsers),
		SecurityRepo:    dynamo.NewSecurityRepo(dynamoClient, cfg.TableUserSecurity),
		TransactionRepo: dynamo.NewTransactionRepo(dynamoClient, cfg.TableTransactions, cfg.TableSyncLog),
		ObjectStore:     s3infra.NewStore(s3Client, cfg.S3BucketName),
		Mail:            mail,
		Tokens:          jwtProvider,
		ScopedTokens:    scoped,
		Hasher:          hash.NewHasher(cfg.BcryptCost),
	}
	if cfg.GoogleClientID != "" {
		deps.Google = google.NewVerifier(cfg.GoogleClientID)
	} else {
		slog.Warn("GOOGLE_CLIENT_ID not set, google sign-in disabled")
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      otelhttp.NewHandler(router, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "mail_driver", cfg.MailDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("tracing shutdown", "err", err)
	}
	slog.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
