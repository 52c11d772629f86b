package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"twofa-service/internal/handler"
)

func SetupRoutes(r chi.Router, h *handler.AuthHandler, corsOrigins []string) chi.Router {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(api chi.Router) {
		// ---------------- Public ----------------
		api.Group(func(pub chi.Router) {
			pub.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})

			pub.Post("/auth/register", h.HandleRegister)
			pub.Post("/auth/login", h.HandleLogin)
			pub.Post("/auth/verify-2fa", h.HandleVerify2FA)
			pub.Post("/auth/logout", h.HandleLogout)

			// Reachable during a pending login as well as after setup.
			pub.Post("/2fa/sms/resend", h.HandleSmsResend)
		})

		// ---------------- Fully authenticated ----------------
		api.Group(func(g chi.Router) {
			g.Use(h.RequireFullAuth)

			g.Get("/auth/me", h.HandleMe)

			g.Post("/2fa/totp/setup", h.HandleTotpSetup)
			g.Post("/2fa/totp/verify", h.HandleTotpVerify)
			g.Delete("/2fa/totp", h.HandleTotpDisable)
			g.Post("/2fa/totp/backup-codes", h.HandleRegenerateBackupCodes)

			g.Post("/2fa/sms/setup", h.HandleSmsSetup)
			g.Post("/2fa/sms/verify", h.HandleSmsVerify)
			g.Delete("/2fa/sms", h.HandleSmsDisable)

			g.Get("/2fa/status", h.Handle2FAStatus)

			g.Get("/profile", h.HandleGetProfile)
			g.Put("/profile", h.HandleUpdateProfile)
		})
	})

	return r
}
