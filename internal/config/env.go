package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"eliwatch/internal/flags"
)

// envKeys are the settings that may be overridden from ELIWATCH_* variables.
var envKeys = []string{
	flags.FlagConcurrency,
	flags.FlagTimeout,
	flags.FlagRequestTimeout,
	flags.FlagMaxRequests,
	flags.FlagUserAgent,
	flags.FlagLogLevel,
	flags.FlagOut,
	flags.FlagHTML,
	flags.FlagBroken,
	flags.FlagBaselineURL,
	flags.FlagRegistryURL,
	flags.FlagReport,
	flags.FlagMetricsOut,
	flags.FlagChecks,
	flags.FlagConsoleFormat,
}

// NewEnv returns a viper instance reading ELIWATCH_* variables, with dashes in
// flag names mapped to underscores.
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(flags.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyEnv copies environment overrides into cfg for settings whose flag was
// not set explicitly. It runs after File.Apply, giving the precedence
// flags > environment > config file > defaults.
func ApplyEnv(cfg *Config, v *viper.Viper, changed func(flag string) bool) error {
	if v == nil {
		return nil
	}
	for _, key := range envKeys {
		if changed != nil && changed(key) {
			continue
		}
		if !v.IsSet(key) {
			continue
		}
		if err := applyEnvKey(cfg, v, key); err != nil {
			return fmt.Errorf("invalid %s_%s: %w", flags.EnvPrefix, strings.ToUpper(strings.ReplaceAll(key, "-", "_")), err)
		}
	}
	return nil
}

func applyEnvKey(cfg *Config, v *viper.Viper, key string) error {
	switch key {
	case flags.FlagConcurrency, flags.FlagMaxRequests:
		n, err := parseEnvInt(v.GetString(key))
		if err != nil {
			return err
		}
		if key == flags.FlagConcurrency {
			cfg.Runtime.Concurrency = n
		} else {
			cfg.Runtime.MaxRequests = n
		}
	case flags.FlagTimeout, flags.FlagRequestTimeout:
		d, err := parseEnvDuration(v.GetString(key))
		if err != nil {
			return err
		}
		if key == flags.FlagTimeout {
			cfg.Runtime.Timeout = d
		} else {
			cfg.Runtime.RequestTimeout = d
		}
	default:
		dst := map[string]*string{
			flags.FlagUserAgent:     &cfg.Runtime.UserAgent,
			flags.FlagLogLevel:      &cfg.Runtime.LogLevel,
			flags.FlagOut:           &cfg.Output.Out,
			flags.FlagHTML:          &cfg.Output.HTML,
			flags.FlagBroken:        &cfg.Output.Broken,
			flags.FlagBaselineURL:   &cfg.Output.BaselineURL,
			flags.FlagRegistryURL:   &cfg.Output.RegistryURL,
			flags.FlagReport:        &cfg.Output.Report,
			flags.FlagMetricsOut:    &cfg.Output.MetricsOut,
			flags.FlagChecks:        &cfg.Checks.Selector,
			flags.FlagConsoleFormat: &cfg.Output.ConsoleFormat,
		}[key]
		if dst != nil {
			*dst = v.GetString(key)
		}
	}
	return nil
}

func parseEnvInt(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}

// parseEnvDuration accepts Go durations ("90s") and bare seconds ("90").
func parseEnvDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(raw)
}
