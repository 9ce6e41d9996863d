package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PAGENOTES"

// EnvConfig maps PAGENOTES_* environment variables. Unset variables keep
// whatever the earlier layers produced.
type EnvConfig struct {
	EndpointAddrHTTP            string        `envconfig:"HTTP_ADDR"`
	DatabaseDSN                 string        `envconfig:"DATABASE_DSN"`
	SecretKey                   string        `envconfig:"SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `envconfig:"ACCESS_TOKEN_TTL"`
	LogBackend                  string        `envconfig:"LOG_BACKEND"`
	LogLevel                    string        `envconfig:"LOG_LEVEL"`
	MinRatingReputation         float64       `envconfig:"MIN_RATING_REPUTATION"`
	MinWritingReputation        float64       `envconfig:"MIN_WRITING_REPUTATION"`
	EditWindow                  time.Duration `envconfig:"EDIT_WINDOW"`
	ReportHideThreshold         int           `envconfig:"REPORT_HIDE_THRESHOLD"`
	MetricsPath                 string        `envconfig:"METRICS_PATH"`
}

// parseEnv overlays values from the environment. A malformed value panics,
// matching the JSON layer.
func parseEnv(config *Config) {
	var e EnvConfig
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, e.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, e.DatabaseDSN)
	setString(&config.SecretKey, e.SecretKey)
	setNonZero(&config.AccessTokenValidityDuration, e.AccessTokenValidityDuration)
	setString(&config.LogBackend, e.LogBackend)
	setString(&config.LogLevel, e.LogLevel)
	setNonZero(&config.MinRatingReputation, e.MinRatingReputation)
	setNonZero(&config.MinWritingReputation, e.MinWritingReputation)
	setNonZero(&config.EditWindow, e.EditWindow)
	setNonZero(&config.ReportHideThreshold, e.ReportHideThreshold)
	setString(&config.MetricsPath, e.MetricsPath)
}
