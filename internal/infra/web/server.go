package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-payments/internal/infra/i18n"
	"course-payments/internal/infra/logging"
	"course-payments/internal/infra/redis"
	"course-payments/internal/usecase"
)

// Limiter is the slice of the rate limiter the server needs; satisfied by
// redis.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	eligibilityUC usecase.EligibilityUseCase
	checkoutUC    usecase.CheckoutUseCase
	reconcileUC   usecase.ReconcileUseCase
	certificateUC usecase.CertificateUseCase
	adminUC       usecase.AdminUseCase

	auth          *AuthManager
	limiter       Limiter
	limitPerMin   int
	webhookSecret string
	translators   map[string]*i18n.Translator
	defaultLocale string
	log           *zerolog.Logger
}

func NewServer(
	eligibilityUC usecase.EligibilityUseCase,
	checkoutUC usecase.CheckoutUseCase,
	reconcileUC usecase.ReconcileUseCase,
	certificateUC usecase.CertificateUseCase,
	adminUC usecase.AdminUseCase,
	auth *AuthManager,
	limiter Limiter,
	limitPerMin int,
	webhookSecret string,
	translators map[string]*i18n.Translator,
	defaultLocale string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		eligibilityUC: eligibilityUC,
		checkoutUC:    checkoutUC,
		reconcileUC:   reconcileUC,
		certificateUC: certificateUC,
		adminUC:       adminUC,
		auth:          auth,
		limiter:       limiter,
		limitPerMin:   limitPerMin,
		webhookSecret: webhookSecret,
		translators:   translators,
		defaultLocale: defaultLocale,
		log:           logger,
	}
}

// Router assembles the full route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.traceContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Provider callbacks authenticate via signature, not bearer token.
	r.Post("/api/v1/webhooks/stripe", s.handleStripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Use(s.buyerContext)
		r.Get("/api/v1/checkout/eligibility", s.handleEligibility)
		r.With(s.rateLimit).Post("/api/v1/checkout", s.handleInitiate)
		r.Post("/api/v1/checkout/confirm", s.handleConfirm)
		r.Post("/api/v1/courses/{courseID}/progress", s.handleProgress)
		// Role enforcement happens inside the admin use case against the
		// caller's stored role, not the token.
		r.Post("/api/v1/admin/refunds", s.handleRefund)
		r.Post("/api/v1/admin/users/{userID}/role", s.handleRoleChange)
	})
	return r
}

// traceContext carries the chi request id into the logging context so every
// log line for one request shares a trace_id.
func (s *Server) traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// buyerContext runs after authentication and adds the buyer id to the
// logging context.
func (s *Server) buyerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithBuyerID(r.Context(), BuyerID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit throttles checkout initiation per buyer. Limiter outages fail
// open: blocking purchases because Redis is down costs more than letting a
// few extra sessions through.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		buyerID := BuyerID(r.Context())
		ok, err := s.limiter.Allow(r.Context(), redis.CheckoutKey(buyerID), s.limitPerMin, time.Minute)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many checkout attempts; try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// translator picks the locale from Accept-Language, falling back to the
// configured default.
func (s *Server) translator(r *http.Request) *i18n.Translator {
	lang := r.Header.Get("Accept-Language")
	for code, tr := range s.translators {
		if lang != "" && (lang == code || len(lang) >= 2 && len(code) >= 2 && lang[:2] == code[:2]) {
			return tr
		}
	}
	return s.translators[s.defaultLocale]
}
