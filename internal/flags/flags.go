package flags

// Package flags defines canonical CLI flag names shared across the CLI, the
// config file and environment overrides. Keeping these as constants helps avoid
// drift between Cobra flag wiring and other code paths that need to reference
// flags (e.g. ELIWATCH_* environment keys).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "...")
//	arg := "--" + flags.FlagOut
const (
	// Input
	FlagInclude    = "include"
	FlagExclude    = "exclude"
	FlagCountry    = "country"
	FlagMaxSources = "max-sources"
	FlagDryRun     = "dry-run"

	// Checks
	FlagChecks = "checks"
	FlagSet    = "set"
	FlagConfig = "config"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagOut                 = "out"
	FlagHTML                = "html"
	FlagBroken              = "broken"
	FlagBaselineURL         = "baseline-url"
	FlagRegistryURL         = "registry-url"
	FlagReport              = "report"
	FlagMetricsOut          = "metrics-out"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"

	// Runtime
	FlagConcurrency    = "concurrency"
	FlagTimeout        = "timeout"
	FlagRequestTimeout = "request-timeout"
	FlagMaxRequests    = "max-requests"
	FlagUserAgent      = "user-agent"
	FlagLogLevel       = "log-level"
	FlagVerbose        = "verbose"

	// notify
	FlagSnapshot  = "snapshot"
	FlagAfterDays = "after-days"
	FlagRepo      = "repo"
	FlagAPIURL    = "api-url"

	// publish / serve
	FlagDir     = "dir"
	FlagBranch  = "branch"
	FlagRemote  = "remote"
	FlagMessage = "message"
	FlagNoPush  = "no-push"
	FlagAddr    = "addr"
)

// EnvPrefix prefixes environment overrides: --request-timeout is ELIWATCH_REQUEST_TIMEOUT.
const EnvPrefix = "ELIWATCH"
