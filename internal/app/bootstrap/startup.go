// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratacovid/internal/app/resources"
	"github.com/dalemusser/stratacovid/internal/app/system/tasks"
	"github.com/dalemusser/stratacovid/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after ConnectDB and before the HTTP handler is built.
//
// It loads the shared templates, sets the site name used by every page, and
// starts the background jobs: idle viewer eviction, the upstream probe, and
// the upstream certificate check.
//
// Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()
	viewdata.Init(appCfg.SiteName)

	startTaskRunner(appCfg, deps, logger)

	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.ViewerEvictionJob(deps.Registry, appCfg.ViewerIdleTimeout, appCfg.ViewerSweepInterval, logger))
	taskRunner.Register(tasks.UpstreamProbeJob(deps.Client, deps.Health, appCfg.UpstreamProbeInterval, logger))
	if appCfg.UpstreamCertInterval > 0 {
		taskRunner.Register(tasks.UpstreamCertJob(appCfg.APIBaseURL, nil, deps.Health, appCfg.UpstreamCertInterval, logger))
	}

	taskRunner.Start()
}
