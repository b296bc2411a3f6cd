package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"eliwatch/internal/config"
	"eliwatch/internal/flags"
	gh "eliwatch/internal/github"
	"eliwatch/internal/publish"
)

var publishOpts = publish.Options{
	Dir:     filepath.Dir(config.DefaultOut),
	Branch:  publish.DefaultBranch,
	Message: publish.DefaultMessage,
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Commit the rendered output to a branch and push it",
	Long: `Commit the rendered output directory (snapshot, page, broken-since
database) to a branch, gh-pages by default, and push it to --remote.

The directory is initialized as a repository on first use. An unchanged
directory makes no commit. HTTPS remotes authenticate with PA_TOKEN,
GITHUB_TOKEN or the GitHub CLI token when one is available.

Examples:
	eliwatch publish --dir web --no-push
	eliwatch publish --dir web --remote https://github.com/owner/repo.git
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log, err := commandLogger(cmd)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = log.Sync() }()

		opts := publishOpts
		opts.Log = log
		if opts.Remote != "" && !opts.NoPush {
			token, _, err := gh.ResolveAuthToken(cmd.Context(), "")
			if err != nil {
				log.Warn("no GitHub token, pushing without credentials")
			}
			opts.Token = token
		}

		res, err := publish.Publish(cmd.Context(), opts)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			_ = log.Sync()
			os.Exit(1)
		}
		switch {
		case res.Committed:
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %s on %s\n", shortHash(res.Commit), opts.Branch)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing to commit on %s\n", opts.Branch)
		}
		if res.Pushed {
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s to %s\n", opts.Branch, opts.Remote)
		}
	},
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishOpts.Dir, flags.FlagDir, publishOpts.Dir, "Rendered output directory")
	publishCmd.Flags().StringVar(&publishOpts.Branch, flags.FlagBranch, publishOpts.Branch, "Branch to commit to")
	publishCmd.Flags().StringVar(&publishOpts.Remote, flags.FlagRemote, "", "Remote URL to push to (empty = commit only)")
	publishCmd.Flags().StringVar(&publishOpts.Message, flags.FlagMessage, publishOpts.Message, "Commit message")
	publishCmd.Flags().BoolVar(&publishOpts.NoPush, flags.FlagNoPush, false, "Commit without pushing")
}
