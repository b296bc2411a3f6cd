package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eliwatch/internal/config"
	"eliwatch/internal/engine"
	"eliwatch/internal/flags"
	"eliwatch/internal/logging"
)

var (
	cfg        = config.New()
	configPath string
)

const checkHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	Every runtime and output flag can be set as ELIWATCH_<FLAG>, with dashes
	replaced by underscores:

	  ELIWATCH_CONCURRENCY=8
	  ELIWATCH_REQUEST_TIMEOUT=30s
	  ELIWATCH_BASELINE_URL=https://owner.github.io/repo/broken.json

	Precedence: flags > environment > --config file > defaults.

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var checkCmd = &cobra.Command{
	Use:   "check SOURCES_DIR",
	Short: "Audit an imagery sources tree",
	Long: `Audit every imagery source under SOURCES_DIR.

Each source is checked for a working imagery endpoint (tms, wms, wmts, with
bing and other proprietary types reported as not checked), a reachable
license and privacy policy URL, and a category.

Output:
	Console output is controlled by --console-format (default: text).
	Artifacts:
	- --out: the JSON snapshot (also the baseline of the next run)
	- --html: the rendered page, grouped by region and country
	- --broken: the broken-since database (--baseline-url downloads the previous one)
	- --report: a Markdown run summary
	- --metrics-out: a Prometheus textfile
	- --emit: an additional structured stream on stdout (json or ndjson)
	- --no-console: suppress the console sink

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, source.started, check.result, source.finished,
	run.finished).

	Artifacts are replaced atomically and only after a completed run.

Exit codes:
	0 = the audit ran (broken sources are reported, not failed)
	1 = fatal error (bad arguments, unreadable sources, aborted run)

Examples:
	eliwatch check ./sources
	eliwatch check ./sources --country de,fr --checks imagery
	eliwatch check ./sources --dry-run
	eliwatch check ./sources --no-console --emit ndjson
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}
		if len(args) == 1 {
			cfg.Input.SourcesDir = args[0]
		}

		if err := loadLayeredConfig(cmd, cfg, configPath); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}

		log, err := logging.New(cfg.Runtime.LogLevel, cmd.ErrOrStderr())
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			os.Exit(engine.ExitFatal)
		}
		code := engine.NewEngine(log).Run(cmd.Context(), cfg)
		_ = log.Sync()
		os.Exit(code)
	},
}

// loadLayeredConfig applies the config file and ELIWATCH_* overrides to
// settings whose flag was not given, then validates the result.
func loadLayeredConfig(cmd *cobra.Command, c *config.Config, path string) error {
	changed := cmd.Flags().Changed
	if path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		f.Apply(c, changed)
	}
	if err := config.ApplyEnv(c, config.NewEnv(), changed); err != nil {
		return err
	}
	return c.Validate()
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.SetHelpTemplate(checkHelpTemplate)

	// Input
	checkCmd.Flags().StringSliceVar(&cfg.Input.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches the path below SOURCES_DIR, else matches the source ID or file name")
	checkCmd.Flags().StringSliceVar(&cfg.Input.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	checkCmd.Flags().StringSliceVar(&cfg.Input.Country, flags.FlagCountry, nil, "Only check sources of these countries (directory name or country code; comma-separated accepted)")
	checkCmd.Flags().IntVar(&cfg.Input.MaxSources, flags.FlagMaxSources, 0, "Maximum number of sources to check (0 = unlimited)")
	checkCmd.Flags().BoolVar(&cfg.Input.DryRun, flags.FlagDryRun, false, "Load and filter sources, print the plan, and exit without fetching")

	// Checks
	checkCmd.Flags().StringVar(&cfg.Checks.Selector, flags.FlagChecks, "", "Comma-separated check IDs to run (empty = all checks)")
	checkCmd.Flags().StringSliceVar(&cfg.Checks.Set, flags.FlagSet, nil, "Per-check options as checkID.option=value (repeatable; comma-separated accepted)")
	checkCmd.Flags().StringVar(&configPath, flags.FlagConfig, "", "YAML config file (flags and environment take precedence)")

	// Output
	checkCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, cfg.Output.ConsoleFormat, "Console output format: text|json|ndjson")
	checkCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (good, warning, error). Comma-separated.")
	checkCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, cfg.Output.Out, "JSON snapshot path")
	checkCmd.Flags().StringVar(&cfg.Output.HTML, flags.FlagHTML, cfg.Output.HTML, "HTML page path (empty = no page)")
	checkCmd.Flags().StringVar(&cfg.Output.Broken, flags.FlagBroken, cfg.Output.Broken, "Broken-since database path (empty = not tracked)")
	checkCmd.Flags().StringVar(&cfg.Output.BaselineURL, flags.FlagBaselineURL, "", "Download the previous broken-since database from this URL")
	checkCmd.Flags().StringVar(&cfg.Output.RegistryURL, flags.FlagRegistryURL, "", "Prefix of the source links on the HTML page")
	checkCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown run summary to this path")
	checkCmd.Flags().StringVar(&cfg.Output.MetricsOut, flags.FlagMetricsOut, "", "Write Prometheus metrics in textfile format to this path")
	checkCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	checkCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit)")

	// Runtime
	checkCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Sources checked in parallel")
	checkCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout")
	checkCmd.Flags().DurationVar(&cfg.Runtime.RequestTimeout, flags.FlagRequestTimeout, cfg.Runtime.RequestTimeout, "Timeout of each network request")
	checkCmd.Flags().IntVar(&cfg.Runtime.MaxRequests, flags.FlagMaxRequests, 0, "Maximum number of network requests (0 = unlimited)")
	checkCmd.Flags().StringVar(&cfg.Runtime.UserAgent, flags.FlagUserAgent, cfg.Runtime.UserAgent, "User-Agent sent with every request")
}
