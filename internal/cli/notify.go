package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eliwatch/internal/config"
	"eliwatch/internal/flags"
	gh "eliwatch/internal/github"
	"eliwatch/internal/notify"
	"eliwatch/internal/report"
)

type notifyOptions struct {
	Snapshot    string
	Broken      string
	AfterDays   int
	Repo        string
	DryRun      bool
	RegistryURL string
	APIURL      string
}

var notifyOpts = notifyOptions{
	Snapshot:  config.DefaultOut,
	Broken:    config.DefaultBroken,
	AfterDays: notify.DefaultAfterDays,
	Repo:      notify.DefaultRepo,
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Open and close watchdog issues for broken imagery",
	Long: `Sync GitHub watchdog issues with the latest audit.

A source whose imagery has been broken for --after-days consecutive days gets
an issue titled "[Watchdog] Imagery "<name>": <path> broken", mentioning the
contributors of its file. A closed issue of the same source is reopened
instead. Open issues of sources that work again are closed.

Authentication:
	The token is read from PA_TOKEN, then GITHUB_TOKEN, then the GitHub CLI.
	--dry-run works without a token for public repositories.

Examples:
	eliwatch notify --dry-run
	eliwatch notify --repo owner/editor-layer-index --after-days 3
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log, err := commandLogger(cmd)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = log.Sync() }()

		if err := runNotify(cmd.Context(), notifyOpts, cmd.OutOrStdout(), log, time.Now); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			_ = log.Sync()
			os.Exit(1)
		}
	},
}

func runNotify(ctx context.Context, opts notifyOptions, w io.Writer, log *zap.Logger, now func() time.Time) error {
	rep, err := report.LoadSnapshot(opts.Snapshot)
	if err != nil {
		return err
	}
	if rep == nil {
		return fmt.Errorf("no snapshot at %s (run eliwatch check first)", opts.Snapshot)
	}
	db, err := report.LoadBrokenDB(opts.Broken)
	if err != nil {
		return err
	}

	token, source, err := gh.ResolveAuthToken(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to resolve GitHub auth token: %w", err)
	}
	if strings.TrimSpace(token) == "" && !opts.DryRun {
		return errors.New("GitHub auth token is required (set PA_TOKEN or GITHUB_TOKEN, or run 'gh auth login')")
	}
	if token != "" {
		log.Debug("github token resolved", zap.String("source", string(source)))
	}

	clientOpts := []gh.Option{gh.WithLogger(log)}
	if opts.APIURL != "" {
		clientOpts = append(clientOpts, gh.WithBaseURL(opts.APIURL))
	}
	client, err := gh.NewClient(ctx, token, clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	repo, err := gh.NewRepository(client, opts.Repo)
	if err != nil {
		return err
	}

	n, err := notify.New(repo,
		notify.WithAfterDays(opts.AfterDays),
		notify.WithDryRun(opts.DryRun),
		notify.WithRegistryURL(opts.RegistryURL),
		notify.WithClock(now),
		notify.WithLogger(log),
	)
	if err != nil {
		return err
	}

	actions, runErr := n.Run(ctx, rep, db)
	prefix := ""
	if opts.DryRun {
		prefix = "[dry-run] "
	}
	for _, a := range actions {
		fmt.Fprintf(w, "%s%s\n", prefix, a)
	}
	if len(actions) == 0 {
		fmt.Fprintf(w, "%sNo watchdog changes for %s\n", prefix, repo)
	}
	return runErr
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().StringVar(&notifyOpts.Snapshot, flags.FlagSnapshot, notifyOpts.Snapshot, "JSON snapshot written by eliwatch check")
	notifyCmd.Flags().StringVar(&notifyOpts.Broken, flags.FlagBroken, notifyOpts.Broken, "Broken-since database written by eliwatch check")
	notifyCmd.Flags().IntVar(&notifyOpts.AfterDays, flags.FlagAfterDays, notifyOpts.AfterDays, "Open an issue once imagery has been broken this many days")
	notifyCmd.Flags().StringVar(&notifyOpts.Repo, flags.FlagRepo, notifyOpts.Repo, "Repository receiving the issues, as OWNER/REPO")
	notifyCmd.Flags().BoolVar(&notifyOpts.DryRun, flags.FlagDryRun, false, "Print the planned issue changes without applying them")
	notifyCmd.Flags().StringVar(&notifyOpts.RegistryURL, flags.FlagRegistryURL, "", "Prefix of the source links in issue bodies")
	notifyCmd.Flags().StringVar(&notifyOpts.APIURL, flags.FlagAPIURL, "", "GitHub API base URL (GitHub Enterprise)")
	_ = notifyCmd.Flags().MarkHidden(flags.FlagAPIURL)
}
