package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"edubot-backend/internal/handlers"
	"edubot-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	healthHandler *handlers.HealthHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. StripSlashes keeps the historical trailing-slash
	// URLs (/auth/register/, /chat/, ...) working.
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check (public)
	r.Get("/health", healthHandler.Check)

	// ──── Auth Routes ────
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", authHandler.GetProfile)
			r.Put("/profile/update", authHandler.UpdateProfile)
		})
	})

	// ──── Chat Routes ────
	r.Group(func(r chi.Router) {
		r.Use(jwtAuth.Middleware)
		r.Post("/chat", chatHandler.Chat)
		r.Get("/conversations", chatHandler.ListConversations)
		r.Get("/conversation/{id}", chatHandler.GetConversation)
		r.Delete("/conversation/{id}/delete", chatHandler.DeleteConversation)
	})

	return r
}
