package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/provider-payouts/internal/api/handlers"
	"github.com/baharkarakas/provider-payouts/internal/auth"
	"github.com/baharkarakas/provider-payouts/internal/config"
	"github.com/baharkarakas/provider-payouts/internal/metrics"
	"github.com/baharkarakas/provider-payouts/internal/middleware"
)

type RouterDeps struct {
	Cfg            config.Config
	Tokens         *auth.TokenManager
	Withdrawals    handlers.Withdrawals
	Earnings       handlers.Earnings
	PaymentMethods handlers.PaymentMethods
	Notifications  handlers.Notifications
	Dispatcher     handlers.Dispatcher
	Messages       handlers.Messages
	Refunds        handlers.Refunds
	Outbox         handlers.Drainer
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics,
		middleware.RateLimit(d.Cfg.RateRPS, d.Cfg.RateBurst))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{d.Cfg.AppURL},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.Tokens, d.Cfg.Env)
	providerH := handlers.NewProviderHandler(d.Earnings, d.Withdrawals)
	pmH := handlers.NewPaymentMethodHandler(d.PaymentMethods)
	notifH := handlers.NewNotificationHandler(d.Notifications)
	msgH := handlers.NewMessageHandler(d.Messages)
	refundH := handlers.NewRefundHandler(d.Refunds)
	adminH := handlers.NewAdminHandler(d.Withdrawals, d.Refunds, d.PaymentMethods, d.Dispatcher, d.Messages, d.Outbox)
	authMW := middleware.NewAuthMiddleware(d.Tokens, d.Cfg.Env)

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/token", authH.Token)
		r.Post("/auth/refresh", authH.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth)

			// ---------- provider ----------
			r.Route("/provider", func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleProvider))
				r.Get("/earnings", providerH.Earnings)
				r.Get("/withdrawals", providerH.ListWithdrawals)
				r.Get("/withdrawals/recent", providerH.RecentWithdrawals)
				r.Post("/withdrawals", providerH.SubmitWithdrawal)
				r.Post("/withdrawals/validate", providerH.ValidateWithdrawal)

				r.Get("/payment-methods", pmH.List)
				r.Post("/payment-methods", pmH.Create)
				r.Put("/payment-methods/{id}", pmH.Update)
				r.Post("/payment-methods/{id}/default", pmH.SetDefault)
				r.Delete("/payment-methods/{id}", pmH.Delete)
			})

			// ---------- notifications ----------
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notifH.List)
				r.Get("/unread-count", notifH.UnreadCount)
				r.Post("/{id}/read", notifH.MarkRead)
				r.Post("/read-all", notifH.MarkAllRead)
				r.Post("/devices", notifH.RegisterDevice)
			})

			// ---------- messages ----------
			r.Post("/messages/track", msgH.Track)
			r.Post("/messages/cancel", msgH.Cancel)

			// ---------- refunds ----------
			r.Get("/refunds", refundH.List)
			r.Post("/refunds", refundH.Create)

			// ---------- admin ----------
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleAdmin))
				r.Post("/withdrawals/{id}/status", adminH.WithdrawalStatus)
				r.Post("/refunds/{id}/status", adminH.RefundStatus)
				r.Post("/payment-methods/{id}/verify", adminH.VerifyPaymentMethod)
				r.Post("/notifications/dispatch", adminH.Dispatch)
				r.Post("/messages/process", adminH.ProcessMessages)
				r.Post("/outbox/drain", adminH.DrainOutbox)
				r.Get("/platform-settings", adminH.GetSettings)
				r.Put("/platform-settings", adminH.PutSettings)
			})
		})
	})

	return r
}
