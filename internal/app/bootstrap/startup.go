// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/studycircle/studycircle/internal/app/feed"
	cataloguestore "github.com/studycircle/studycircle/internal/app/store/catalogue"
	groupstore "github.com/studycircle/studycircle/internal/app/store/groups"
	memberstore "github.com/studycircle/studycircle/internal/app/store/members"
	"github.com/studycircle/studycircle/internal/app/system/tasks"
	"github.com/studycircle/studycircle/internal/app/workflow"
	"go.uber.org/zap"
)

// Long-lived application services, created once in Startup. WAFFLE's
// hooks pass DBDeps by value, so these live at package level where
// BuildHandler and Shutdown can reach them.
var (
	hub     *feed.Hub
	tickets *feed.TicketIssuer
	svc     *workflow.Service
	taskRun *tasks.Runner
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
// It builds the chat feed hub, the websocket ticket issuer, the
// membership workflow service, and starts the background task runner.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.StudyCircleMongoDatabase

	hub = feed.NewHub(logger)

	var blockKey []byte
	if appCfg.TicketBlockKey != "" {
		blockKey = []byte(appCfg.TicketBlockKey)
	}
	tickets = feed.NewTicketIssuer([]byte(appCfg.TicketHashKey), blockKey)

	svc = workflow.New(deps.StudyCircleMongoClient, db, hub, logger)

	taskRun = tasks.NewRunner(logger,
		tasks.CatalogueAuditJob(cataloguestore.New(db), logger),
		tasks.MemberCountRepairJob(groupstore.New(db), memberstore.New(db), logger),
	)
	taskRun.Start()

	logger.Info("application services started")
	return nil
}
