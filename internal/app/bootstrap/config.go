// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for StudyCircle.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STUDYCIRCLE_MONGO_URI, STUDYCIRCLE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "studycircle", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "studycircle-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Browser origin
	{Name: "allowed_origin", Default: "", Desc: "Browser origin allowed for CORS and websocket upgrades (blank allows any)"},

	// Websocket ticket keys
	{Name: "ticket_hash_key", Default: "dev-only-ticket-hash-0123456789AB", Desc: "HMAC key for signing websocket tickets"},
	{Name: "ticket_block_key", Default: "", Desc: "Optional AES key (16/24/32 bytes) for encrypting websocket tickets"},

	// Catalogue loader credentials
	{Name: "catalogue_admin_key", Default: "", Desc: "Shared key accepted by the catalogue load endpoint (X-Admin-Key)"},
	{Name: "catalogue_jwt_secret", Default: "", Desc: "HS256 secret for catalogue loader bearer tokens"},
	{Name: "catalogue_jwt_issuer", Default: "studycircle", Desc: "Required issuer claim on catalogue loader tokens"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STUDYCIRCLE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "STUDYCIRCLE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		AllowedOrigin: appValues.String("allowed_origin"),

		TicketHashKey:  appValues.String("ticket_hash_key"),
		TicketBlockKey: appValues.String("ticket_block_key"),

		CatalogueAdminKey:  appValues.String("catalogue_admin_key"),
		CatalogueJWTSecret: appValues.String("catalogue_jwt_secret"),
		CatalogueJWTIssuer: appValues.String("catalogue_jwt_issuer"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg.Env == "prod" {
		if appCfg.SessionKey == "dev-only-change-me-please-0123456789ABCDEF" {
			return fmt.Errorf("session_key must be changed from the dev default in production")
		}
		if appCfg.TicketHashKey == "dev-only-ticket-hash-0123456789AB" {
			return fmt.Errorf("ticket_hash_key must be changed from the dev default in production")
		}
		if appCfg.AllowedOrigin == "" {
			logger.Warn("allowed_origin is blank; any browser origin will be accepted")
		}
	}

	if n := len(appCfg.TicketBlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return fmt.Errorf("ticket_block_key must be 16, 24, or 32 bytes, got %d", n)
	}

	if appCfg.CatalogueAdminKey == "" && appCfg.CatalogueJWTSecret == "" {
		logger.Warn("no catalogue loader credentials configured; /catalogue/load will reject all callers")
	}

	return nil
}
