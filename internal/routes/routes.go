package routes

import (
	"net/http"

	"github.com/AnshRaj112/clipstream-backend/internal/handlers"
	"github.com/AnshRaj112/clipstream-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

type Deps struct {
	User *handlers.UserHandler
	Auth *middleware.Authenticator
	// AuthLimiter guards the credential endpoints. Nil disables it.
	AuthLimiter *middleware.AuthRateLimiter
}

func SetupRoutes(r chi.Router, d Deps) {
	r.Get("/health", handlers.Health)

	r.Route("/user", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.AuthLimiter.Handler)
			r.Post("/register", d.User.Register)
			r.Post("/login", d.User.Login)
			r.Post("/refresh-token", d.User.RefreshToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.Auth.Handler)
			r.Get("/logout", d.User.Logout)
			r.Post("/changePassword", d.User.ChangePassword)
			r.Get("/current-user", d.User.CurrentUser)
			r.Post("/update-user-details", d.User.UpdateDetails)
			r.Post("/update-user-avatar", d.User.UpdateAvatar)
			r.Post("/update-user-coverimage", d.User.UpdateCoverImage)
			r.Post("/remove-user-coverimage", d.User.RemoveCoverImage)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
}
