package catalogue

import (
	"github.com/go-chi/chi/v5"
	"github.com/studycircle/studycircle/internal/app/system/auth"
)

// ModuleRoutes returns the router for module reads, mounted at
// /modules. Reference data needs a signed-in user, nothing more.
func ModuleRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ListModules)
	r.Get("/{code}", h.GetModule)
	return r
}

func MajorRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ListMajors)
	r.Get("/{code}", h.GetMajor)
	return r
}

// LoadRoutes returns the router for the loader surface, mounted at
// /catalogue. It carries its own credentials (JWT or admin key), not
// the session.
func LoadRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/load", h.Load)
	r.Get("/status", h.Status)
	return r
}
