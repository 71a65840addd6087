package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fiscus-api/internal/application/export"
	"github.com/fiscus-api/internal/application/identity"
	"github.com/fiscus-api/internal/application/otp"
	"github.com/fiscus-api/internal/application/recovery"
	"github.com/fiscus-api/internal/application/transaction"
	"github.com/fiscus-api/internal/application/verification"
	"github.com/fiscus-api/internal/config"
	"github.com/fiscus-api/internal/transport/http/handler"
	appmiddleware "github.com/fiscus-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo        UserRepository
	SecurityRepo    SecurityRepository
	TransactionRepo TransactionRepository
	ObjectStore     ObjectStore
	Mail            MailDispatcher
	Tokens          TokenProvider
	ScopedTokens    ScopedTokens
	// Google is optional; nil disables Google ID token login.
	Google GoogleVerifier
	Hasher SecretHasher
	// Now overrides the clock in tests.
	Now func() time.Time
}

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background work such as the rate limiter's sweeper.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		// Only behind a proxy that overwrites X-Forwarded-For / X-Real-Ip.
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	identitySvc := identity.NewService(identity.ServiceDeps{
		UserRepo: deps.UserRepo,
		Tokens:   deps.Tokens,
		Google:   deps.Google,
		Hasher:   deps.Hasher,
		Now:      deps.Now,
	})
	otpSvc := otp.NewService(otp.ServiceDeps{
		Store:  deps.SecurityRepo,
		Mail:   deps.Mail,
		Hasher: deps.Hasher,
		Now:    deps.Now,
	})
	recoverySvc := recovery.NewService(recovery.ServiceDeps{
		Identity: identitySvc,
		OTP:      otpSvc,
		Tokens:   deps.ScopedTokens,
	})
	verificationSvc := verification.NewService(verification.ServiceDeps{
		Store:  deps.SecurityRepo,
		OTP:    otpSvc,
		Hasher: deps.Hasher,
	})
	txSvc := transaction.NewService(transaction.ServiceDeps{
		TransactionRepo: deps.TransactionRepo,
		Now:             deps.Now,
	})
	exportSvc := export.NewService(export.ServiceDeps{
		Ledger: txSvc,
		Store:  deps.ObjectStore,
		URLTTL: cfg.ExportURLTTL,
		Now:    deps.Now,
	})

	authMw := appmiddleware.Auth(identitySvc)
	// 5 requests/second, burst of 10, on endpoints that mail codes or check secrets.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(identitySvc)
	pwH := handler.NewPasswordRecoveryHandler(recoverySvc)
	verifyH := handler.NewVerificationHandler(verificationSvc)
	txH := handler.NewTransactionHandler(txSvc, exportSvc)

	r.Get("/health", healthH.Health)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/users", authH.Register)
		r.With(sensitiveRL.Limit).Post("/sessions/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", pwH.Action)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/me", authH.Me)

			r.With(sensitiveRL.Limit).Post("/verification/send-code", verifyH.SendCode)
			r.Post("/verification/verify-code", verifyH.VerifyCode)
			r.Get("/verification/status", verifyH.Status)
			r.Post("/verification/pin", verifyH.SetPin)
			r.With(sensitiveRL.Limit).Post("/verification/pin/verify", verifyH.VerifyPin)

			r.Get("/transactions", txH.List)
			r.Get("/transactions/updated", txH.Updated)
			r.Post("/transactions", txH.Create)
			r.Post("/transactions/export", txH.Export)
			r.Put("/transactions/{id}", txH.Update)
			r.Delete("/transactions/{id}", txH.Delete)
		})
	})

	return r
}
