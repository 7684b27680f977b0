package chat

import (
	"github.com/go-chi/chi/v5"
	"github.com/studycircle/studycircle/internal/app/system/auth"
)

// Routes returns the router for chat endpoints, mounted under
// /chat/groups. The websocket endpoint authenticates with a ticket
// instead of the session, so it sits outside RequireSignedIn.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Route("/{id}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sm.RequireSignedIn)
			r.Get("/messages", h.Messages)
			r.Post("/messages", h.Post)
			r.Post("/ticket", h.Ticket)
		})
		r.Get("/ws", h.Feed)
	})

	return r
}
