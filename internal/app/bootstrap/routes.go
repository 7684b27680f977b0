// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authfeature "github.com/studycircle/studycircle/internal/app/features/auth"
	cataloguefeature "github.com/studycircle/studycircle/internal/app/features/catalogue"
	chatfeature "github.com/studycircle/studycircle/internal/app/features/chat"
	groupsfeature "github.com/studycircle/studycircle/internal/app/features/groups"
	healthfeature "github.com/studycircle/studycircle/internal/app/features/health"
	cataloguestore "github.com/studycircle/studycircle/internal/app/store/catalogue"
	userstore "github.com/studycircle/studycircle/internal/app/store/users"
	"github.com/studycircle/studycircle/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this
// WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed, so the feed hub, ticket issuer,
// and workflow service built in Startup are available here.
//
// StudyCircle is a JSON API consumed by a browser SPA: every surface is
// a feature router mounted under its own prefix, with CORS and the
// session-user middleware applied globally. Per-group authority (admin
// vs member) is never decided here; handlers resolve it against
// group_members on every request.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.StudyCircleMongoDatabase

	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()

	// The SPA sends the session cookie cross-origin, so CORS must both
	// name the origin and allow credentials. A blank allowed_origin
	// echoes any origin, which only makes sense in development.
	allowedOrigins := []string{"*"}
	if appCfg.AllowedOrigin != "" {
		allowedOrigins = []string{appCfg.AllowedOrigin}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global auth middleware: loads SessionUser into context if logged
	// in. This makes the current user available to all handlers via
	// auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.StudyCircleMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Accounts and sessions
	authHandler := authfeature.NewHandler(userstore.New(db), sessionMgr, logger)
	r.Mount("/auth", authfeature.Routes(authHandler, sessionMgr))

	// Groups: discovery, membership workflow, meetings
	groupsHandler := groupsfeature.NewHandler(svc, db, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

	// Chat: history, posting, websocket feed
	chatHandler := chatfeature.NewHandler(svc, hub, tickets, db, appCfg.AllowedOrigin, logger)
	r.Mount("/chat/groups", chatfeature.Routes(chatHandler, sessionMgr))

	// Course catalogue: reference reads plus the loader surface used
	// by the scraper (it carries its own credentials, not a session).
	catalogueHandler := cataloguefeature.NewHandler(
		cataloguestore.New(db),
		appCfg.CatalogueAdminKey,
		[]byte(appCfg.CatalogueJWTSecret),
		appCfg.CatalogueJWTIssuer,
		logger,
	)
	r.Mount("/modules", cataloguefeature.ModuleRoutes(catalogueHandler, sessionMgr))
	r.Mount("/majors", cataloguefeature.MajorRoutes(catalogueHandler, sessionMgr))
	r.Mount("/catalogue", cataloguefeature.LoadRoutes(catalogueHandler))

	return r, nil
}
