// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/app/system/dashstate"
	"github.com/dalemusser/stratacovid/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// ConnectDB builds the backends the app talks to.
//
// WAFFLE calls this after configuration is loaded but before Startup. Here
// that means the statistics API client, the probe health record, the counter
// formatter, and the registry of per-viewer dashboard controllers.
//
// No network call is made; the first upstream request happens when a viewer
// opens the dashboard or the probe job runs.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(timeouts.Config{
		Upstream: appCfg.UpstreamTimeout,
		Settle:   appCfg.SettleTimeout,
	})

	client, err := covidapi.New(covidapi.Config{
		BaseURL:   appCfg.APIBaseURL,
		Timeout:   appCfg.UpstreamTimeout,
		MaxBody:   appCfg.UpstreamMaxBody,
		UserAgent: appCfg.UpstreamUserAgent,
	}, logger.Named("covidapi"))
	if err != nil {
		return DBDeps{}, fmt.Errorf("failed to create statistics API client: %w", err)
	}

	format, err := countrystats.NewFormatter(appCfg.NumberLocale)
	if err != nil {
		return DBDeps{}, err
	}

	registry := dashstate.NewRegistry(client, dashstate.ControllerConfig{
		DefaultSlug: appCfg.DefaultCountry,
		Formatter:   format,
	}, appCfg.ViewerLimit, logger.Named("dashboard"))

	logger.Info("statistics API client ready",
		zap.String("base_url", client.BaseURL()),
		zap.String("default_country", appCfg.DefaultCountry),
		zap.String("number_locale", format.Locale()),
		zap.Duration("upstream_timeout", appCfg.UpstreamTimeout),
		zap.Int("viewer_limit", appCfg.ViewerLimit),
	)

	return DBDeps{
		Client:    client,
		Health:    covidapi.NewHealth(),
		Registry:  registry,
		Formatter: format,
	}, nil
}
