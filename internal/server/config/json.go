package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/pagenotes/internal/flagx"
	"github.com/dmitrijs2005/pagenotes/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "10m" and integer nanoseconds.
//
// After unmarshalling, non-zero fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	LogBackend                  string         `json:"log_backend"`
	LogLevel                    string         `json:"log_level"`
	MinRatingReputation         float64        `json:"min_rating_reputation"`
	MinWritingReputation        float64        `json:"min_writing_reputation"`
	EditWindow                  timex.Duration `json:"edit_window"`
	ReportHideThreshold         int            `json:"report_hide_threshold"`
	MetricsPath                 string         `json:"metrics_path"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag in args. Without the flag nothing is loaded. An unreadable
// file or invalid JSON panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFile(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setNonZero(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)
	setNonZero(&config.MinRatingReputation, c.MinRatingReputation)
	setNonZero(&config.MinWritingReputation, c.MinWritingReputation)
	setNonZero(&config.EditWindow, c.EditWindow.Duration)
	setNonZero(&config.ReportHideThreshold, c.ReportHideThreshold)
	setString(&config.MetricsPath, c.MetricsPath)
}

func setString(dst *string, v string) {
	setNonZero(dst, v)
}

func setNonZero[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
