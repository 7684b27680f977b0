package auth

import (
	sysauth "github.com/studycircle/studycircle/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for account and session endpoints.
func Routes(h *Handler, sm *sysauth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(sm.RequireSignedIn)
		r.Get("/me", h.Me)
		r.Put("/me", h.UpdateProfile)
	})

	return r
}
