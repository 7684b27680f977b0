// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, and request timeouts. AppConfig is where
// everything specific to StudyCircle lives: the MongoDB connection, the
// session cookie, the browser origin allowed to call the API, and the
// credentials for the catalogue loader and websocket tickets.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: studycircle-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Browser origin allowed for CORS and websocket upgrades.
	// Blank allows any origin (development only).
	AllowedOrigin string

	// Websocket ticket signing keys. The hash key signs tickets; the
	// optional block key additionally encrypts them.
	TicketHashKey  string
	TicketBlockKey string

	// Catalogue loader credentials. The scraper authenticates with
	// either the shared admin key or an HS256 bearer token.
	CatalogueAdminKey  string
	CatalogueJWTSecret string
	CatalogueJWTIssuer string
}
