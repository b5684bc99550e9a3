package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-enrollment/internal/config"
	"course-enrollment/internal/domain/model"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/usecase"
)

// Deps are the use cases the HTTP surface exposes.
type Deps struct {
	Activation usecase.ActivationUseCase
	Checkout   usecase.CheckoutUseCase
	Mailbox    usecase.MailboxUseCase
	Watch      usecase.WatchUseCase
	Progress   usecase.ProgressUseCase
	Auth       *AuthManager
	JobToken   string
	// Dev disables PII redaction in request logs.
	Dev bool
	// Health reports dependency readiness for /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
}

type Handler struct {
	d   Deps
	log *zerolog.Logger
}

// NewRouter builds the chi router with middleware and every route.
func NewRouter(d Deps, requestTimeout time.Duration, logger *zerolog.Logger) http.Handler {
	log := logging.OrNop(logger)
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	h := &Handler{d: d, log: log}

	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(log), Recover(log), Timeout(requestTimeout))

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhooks/mailbox", h.mailboxWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.Auth.RequireRole())
			r.Post("/checkout/intents", h.createCheckoutIntent)
			r.Get("/me/progress", h.myProgress)
			r.Patch("/me/plan/steps/{stepID}", h.setMyStepDone)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(d.Auth.RequireRole(model.RoleStaff))
			r.Get("/payments", h.listPayments)
			r.Get("/payments/{id}", h.getPayment)
			r.Post("/payments/{id}/activate", h.activatePayment)
			r.Post("/payments/{id}/reject", h.rejectPayment)
			r.Get("/students/{uid}/progress", h.studentProgress)
			r.Post("/students/{uid}/plan/steps", h.addSteps)
			r.Patch("/students/{uid}/plan/steps/reorder", h.reorderSteps)
			r.Delete("/students/{uid}/plan/steps/{stepID}", h.deleteStep)
			r.Post("/students/{uid}/plan/reset", h.resetPlan)
			r.Get("/step-completions", h.listCompletions)
			r.Patch("/step-completions/{id}", h.updateCompletion)
			r.Post("/step-completions/{id}/revoke", h.revokeCompletion)
		})
	})

	r.With(d.Auth.RequireJobTokenOrStaff(d.JobToken)).Post("/jobs/mailbox/renew-watch", h.renewWatch)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusNotFound, codeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusMethodNotAllowed, codeValidation, "method not allowed", nil)
	})
	return r
}

// fail writes the error envelope and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := writeError(w, err); status >= http.StatusInternalServerError {
		l := logging.With(r.Context(), h.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.d.Health != nil {
		if err := h.d.Health(r.Context()); err != nil {
			logging.With(r.Context(), h.log).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Server owns the listening http.Server.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(cfg config.HTTPConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logging.OrNop(logger),
	}
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
