// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratacovid/internal/app/system/countrystats"
	"github.com/dalemusser/stratacovid/internal/app/system/covidapi"
	"github.com/dalemusser/stratacovid/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATACOVID"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: api_base_url, default_country, etc.
//   - Environment variables: STRATACOVID_API_BASE_URL, STRATACOVID_DEFAULT_COUNTRY, etc.
//   - Command-line flags: --api_base_url, --default_country, etc.
var appConfigKeys = []config.AppKey{
	{Name: "api_base_url", Default: models.DefaultAPIBaseURL, Desc: "Base URL of the COVID-19 statistics API"},
	{Name: "upstream_timeout", Default: "15s", Desc: "Timeout for one request to the statistics API"},
	{Name: "upstream_max_body", Default: 33554432, Desc: "Maximum upstream response body size in bytes"},
	{Name: "upstream_user_agent", Default: covidapi.DefaultUserAgent, Desc: "User-Agent sent to the statistics API"},
	{Name: "upstream_probe_interval", Default: "1m", Desc: "How often the upstream health probe runs"},
	{Name: "upstream_cert_interval", Default: "12h", Desc: "How often the upstream TLS certificate is checked (0 disables)"},

	{Name: "default_country", Default: models.DefaultCountrySlug, Desc: "Country slug selected for new viewers"},
	{Name: "number_locale", Default: "en", Desc: "Locale used to group counter digits (e.g., en, de, fr)"},
	{Name: "settle_timeout", Default: "20s", Desc: "Max time an API request with ?wait=1 waits for a fetch cycle"},

	{Name: "viewer_idle_timeout", Default: "30m", Desc: "Drop a viewer's dashboard state after this much inactivity"},
	{Name: "viewer_sweep_interval", Default: "5m", Desc: "How often idle viewer state is swept"},
	{Name: "viewer_limit", Default: 10000, Desc: "Maximum number of viewers with live dashboard state"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratacovid-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	{Name: "site_name", Default: models.DefaultSiteName, Desc: "Site name shown in page titles"},
}

// LoadConfig loads WAFFLE core config and the app-specific keys above.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		APIBaseURL:            strings.TrimSpace(appValues.String("api_base_url")),
		UpstreamTimeout:       appValues.Duration("upstream_timeout", 15*time.Second),
		UpstreamMaxBody:       int64(appValues.Int("upstream_max_body")),
		UpstreamUserAgent:     appValues.String("upstream_user_agent"),
		UpstreamProbeInterval: appValues.Duration("upstream_probe_interval", time.Minute),
		UpstreamCertInterval:  appValues.Duration("upstream_cert_interval", 12*time.Hour),

		DefaultCountry: strings.TrimSpace(appValues.String("default_country")),
		NumberLocale:   strings.TrimSpace(appValues.String("number_locale")),
		SettleTimeout:  appValues.Duration("settle_timeout", 20*time.Second),

		ViewerIdleTimeout:   appValues.Duration("viewer_idle_timeout", 30*time.Minute),
		ViewerSweepInterval: appValues.Duration("viewer_sweep_interval", 5*time.Minute),
		ViewerLimit:         appValues.Int("viewer_limit"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 720*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		SiteName: appValues.String("site_name"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects settings the app cannot run with. All problems are
// reported together.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	if err := covidapi.ValidateBaseURL(appCfg.APIBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid api_base_url: %w", err))
	}
	if appCfg.DefaultCountry == "" {
		errs = append(errs, errors.New("default_country must not be empty"))
	}
	if _, err := countrystats.NewFormatter(appCfg.NumberLocale); err != nil {
		errs = append(errs, err)
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"upstream_timeout", appCfg.UpstreamTimeout},
		{"upstream_probe_interval", appCfg.UpstreamProbeInterval},
		{"settle_timeout", appCfg.SettleTimeout},
		{"viewer_idle_timeout", appCfg.ViewerIdleTimeout},
		{"viewer_sweep_interval", appCfg.ViewerSweepInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", p.name, p.value))
		}
	}
	if appCfg.UpstreamCertInterval < 0 {
		errs = append(errs, fmt.Errorf("upstream_cert_interval must not be negative, got %s", appCfg.UpstreamCertInterval))
	}
	if appCfg.ViewerLimit <= 0 {
		errs = append(errs, fmt.Errorf("viewer_limit must be positive, got %d", appCfg.ViewerLimit))
	}
	if appCfg.UpstreamMaxBody <= 0 {
		errs = append(errs, fmt.Errorf("upstream_max_body must be positive, got %d", appCfg.UpstreamMaxBody))
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}
