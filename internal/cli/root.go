package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eliwatch/internal/config"
	"eliwatch/internal/flags"
	"eliwatch/internal/logging"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "eliwatch",
	Short: "Audit the imagery sources of an editor layer index",
	Long: `eliwatch checks every imagery source of an editor-layer-index sources tree:
it probes the imagery endpoint, the license and privacy policy links, and the
category, then renders the results as a JSON snapshot and an HTML page.

Examples:
	# Audit a sources tree
	eliwatch check ./sources

	# Open watchdog issues for long-broken imagery
	eliwatch notify --repo osmlab/editor-layer-index

	# List checks
	eliwatch checks list

	# Preview and publish the rendered output
	eliwatch serve --dir web
	eliwatch publish --dir web --remote https://github.com/owner/repo.git

Logging:
	Diagnostics go to stderr through a leveled logger (--log-level, or
	ELIWATCH_LOG_LEVEL). Stdout is reserved for results.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfg.Runtime.LogLevel, flags.FlagLogLevel, cfg.Runtime.LogLevel, "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Shorthand for --log-level=debug (also prints full error details)")
}

// commandLogger builds the stderr logger for commands that do not go through
// the full config layering of check.
func commandLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level := cfg.Runtime.LogLevel
	if !cmd.Flags().Changed(flags.FlagLogLevel) {
		if env := config.NewEnv(); env.IsSet(flags.FlagLogLevel) {
			level = env.GetString(flags.FlagLogLevel)
		}
	}
	if cfg.Runtime.Verbose {
		level = "debug"
	}
	return logging.New(level, cmd.ErrOrStderr())
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
