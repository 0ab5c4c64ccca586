package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Reconciler  Reconciler
	Runs        RunLister
	Notifier    Notifier
	Invoices    InvoiceService
	Postgres    Pinger
	Redis       Pinger
	Gatherer    prometheus.Gatherer
	Logger      zerolog.Logger
	CORSOrigins []string
	Env         string
	Version     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
	}))

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Reconciliation endpoints
	r.Route("/reconciliations", func(r chi.Router) {
		r.Get("/", listRunsHandler(cfg.Runs))
		r.Post("/{policy}", runReconciliationHandler(cfg.Reconciler))
		r.Post("/{policy}/export", exportReconciliationHandler(cfg.Reconciler))
	})

	// Notification endpoints
	r.Post("/chats/{id}/notifications", chatNotificationHandler(cfg.Notifier))
	r.Post("/notifications", generalNotificationHandler(cfg.Notifier))
	r.Post("/notifications/appointments/{id}/{kind}", appointmentNotificationHandler(cfg.Notifier))

	// Invoice endpoints
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", listInvoicesHandler(cfg.Invoices))
		r.Post("/", createInvoiceHandler(cfg.Invoices))
		r.Get("/stats", invoiceStatsHandler(cfg.Invoices))
		r.Patch("/{id}/status", updateInvoiceStatusHandler(cfg.Invoices))
	})

	return r
}
