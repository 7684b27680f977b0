// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown cleanly tears down background services and DB connections.
// Order matters: stop producing (task runner), close the feed hub so
// websocket clients get a close frame, then drop the Mongo connection.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if taskRun != nil {
		taskRun.Stop()
	}
	if hub != nil {
		hub.Close()
	}

	if deps.StudyCircleMongoClient != nil {
		logger.Info("disconnecting StudyCircle MongoDB client")
		if err := deps.StudyCircleMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
