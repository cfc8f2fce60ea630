// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dalemusser/vlsiclub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment override, core and app alike.
const EnvPrefix = "VLSICLUB"

// appConfigKeys are the flat keys registered with WAFFLE's config system.
// Everything else about the club lives in the nested AppConfig sections.
var appConfigKeys = []config.AppKey{
	{Name: "app_config", Default: "", Desc: "Path to the club YAML config (default: search config.yaml, /etc/vlsiclub/config.yaml)"},
}

// DefaultConfigPaths lists the config files searched in order when
// app_config is unset. No file at all is fine.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vlsiclub/config.yaml",
}

// minSessionKeyLen matches what securecookie needs for HMAC-SHA256.
const minSessionKeyLen = 32

// LoadConfig loads WAFFLE core config and the club's app config.
//
// WAFFLE's config.LoadWithAppConfig handles env, log level, port, server
// timeouts and the request body limit (flags > env > config.* > defaults,
// VLSICLUB_* for env). The nested club sections are then layered by
// LoadAppConfig from the file named by app_config.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg, err := LoadAppConfig(appValues.String("app_config"))
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, appCfg, nil
}

// LoadAppConfig layers defaults, the config file at path (or a discovered one),
// and VLSICLUB_* environment variables, with env taking precedence.
func LoadAppConfig(path string) (AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return AppConfig{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix+"_", ".", envKey), nil); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

// envKey maps VLSICLUB_CMS__PROJECT_ID to cms.project_id. Flat core keys
// such as VLSICLUB_HTTP_PORT come through unchanged and are ignored on unmarshal.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix+"_")
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func findConfigFile() string {
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Configuration errors.
var (
	ErrMissingCMS        = errors.New("cms.project_id, cms.dataset and cms.token are required")
	ErrMissingSessionKey = errors.New("session.key is required")
	ErrShortSessionKey   = fmt.Errorf("session.key must be at least %d bytes", minSessionKeyLen)
)

// ValidateConfig rejects configurations the server cannot run with. A missing
// mail backend is not an error here; the reset endpoint reports it instead.
// Every problem is reported, not just the first.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var problems []error

	if strings.TrimSpace(appCfg.CMS.ProjectID) == "" || strings.TrimSpace(appCfg.CMS.Dataset) == "" || strings.TrimSpace(appCfg.CMS.Token) == "" {
		problems = append(problems, ErrMissingCMS)
	}

	switch {
	case appCfg.Session.Key == "":
		problems = append(problems, ErrMissingSessionKey)
	case len(appCfg.Session.Key) < minSessionKeyLen:
		problems = append(problems, ErrShortSessionKey)
	}

	if err := wafflemongo.ValidateURI(appCfg.Mongo.URI); err != nil {
		problems = append(problems, fmt.Errorf("invalid mongo.uri: %w", err))
	}
	if appCfg.Mongo.Database == "" {
		problems = append(problems, errors.New("mongo.database is required"))
	}

	if q := appCfg.Timeouts.Query; q != 0 && (q < timeouts.MinQuery || q > timeouts.MaxQuery) {
		problems = append(problems, fmt.Errorf("timeouts.query %v outside [%v, %v]", q, timeouts.MinQuery, timeouts.MaxQuery))
	}
	if appCfg.HTTP.RequestTimeout > 0 && appCfg.HTTP.RequestTimeout <= appCfg.Timeouts.Query {
		problems = append(problems, fmt.Errorf("http.request_timeout %v must exceed timeouts.query %v", appCfg.HTTP.RequestTimeout, appCfg.Timeouts.Query))
	}

	switch appCfg.Profiles.Backend {
	case "", "mongo":
	case "firestore":
		if appCfg.Profiles.FirestoreProject == "" {
			problems = append(problems, errors.New("profiles.firestore_project is required for the firestore backend"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown profiles.backend %q", appCfg.Profiles.Backend))
	}

	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.BaseURL, "http://") {
		logger.Warn("base_url is not https in prod", zap.String("base_url", appCfg.BaseURL))
	}

	if err := errors.Join(problems...); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}

// applyTimeouts pushes the configured timeouts into the shared timeouts package.
func applyTimeouts(cfg AppConfig) {
	timeouts.Configure(timeouts.Config{
		Ping:   cfg.Timeouts.Ping,
		Short:  cfg.Timeouts.Short,
		Medium: cfg.Timeouts.Medium,
		Query:  cfg.Timeouts.Query,
	})
}
