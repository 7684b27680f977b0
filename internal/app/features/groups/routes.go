package groups

import (
	"github.com/go-chi/chi/v5"
	"github.com/studycircle/studycircle/internal/app/system/auth"
)

// Routes returns the router for group endpoints. Everything requires a
// signed-in user; per-group authority (admin vs member) is resolved by
// the workflow or grouppolicy, never by the session.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)

	r.Get("/", h.List)
	r.Post("/", h.Create)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Detail)
		r.Delete("/", h.Delete)

		r.Post("/join", h.Join)
		r.Post("/leave", h.Leave)

		r.Get("/requests", h.ListRequests)
		r.Post("/requests", h.RequestJoin)
		r.Post("/requests/{reqID}/accept", h.Accept)
		r.Post("/requests/{reqID}/decline", h.Decline)

		r.Post("/members/{userID}/promote", h.Promote)

		r.Get("/meetings", h.Meetings)
	})

	return r
}
