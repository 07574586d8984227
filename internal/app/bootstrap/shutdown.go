// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown is invoked during WAFFLE's shutdown phase, after the HTTP server
// has stopped accepting requests.
//
// The context carries the shutdown deadline. The task runner is stopped
// first so no eviction sweep races with closing the registry.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var firstErr error

	// Stop background task runner with context timeout
	if taskRunner != nil {
		logger.Info("stopping background task runner")
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("background task runner did not stop cleanly", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	// Cancel in-flight fetch cycles
	if deps.Registry != nil {
		logger.Info("closing dashboard controllers", zap.Int("viewers", deps.Registry.Len()))
		deps.Registry.Close()
	}

	return firstErr
}
