package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"eliwatch/internal/checks"
)

var checksListQuiet bool
var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List and describe checks",
	Long: `List the checks eliwatch runs against every source.

Checks are evaluated during audits (see "eliwatch check --help").

Examples:
  eliwatch checks list
  eliwatch checks show imagery
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var checksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available checks",
	Long: `List all checks registered in this build, sorted by ID.

Output:
  A vertical list of checks:
    ----------------------------------------
    CHECK: {ID}
    ----------------------------------------
    {TITLE}
    {DESCRIPTION}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, c := range checks.List() {
			if checksListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), c.ID())
			} else {
				printCheck(cmd.OutOrStdout(), c)
			}
		}
		return nil
	},
}

var checksShowCmd = &cobra.Command{
	Use:   "show [check-id]",
	Short: "Show a check and its options",
	Long: `Show a check by its ID, including the options accepted by --set.

Examples:
  eliwatch checks show license_url
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ok := checks.Lookup(args[0])
		if !ok {
			return fmt.Errorf("check not found: %s", args[0])
		}
		printCheck(cmd.OutOrStdout(), c)
		return nil
	},
}

func printCheck(w io.Writer, c checks.Check) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "CHECK: %s\n", c.ID())
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, c.Title())
	fmt.Fprintln(w, c.Description())

	if cc, ok := c.(checks.ConfigurableCheck); ok {
		opts := cc.Options()
		if len(opts) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Options:")
			for _, opt := range opts {
				def := opt.Default
				if def == "" {
					def = "\"\""
				}
				fmt.Fprintf(w, "  %s.%s\n", c.ID(), opt.Name)
				fmt.Fprintf(w, "    Description: %s\n", opt.Description)
				fmt.Fprintf(w, "    Default:     %s\n", def)
			}
		}
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(checksCmd)
	checksCmd.AddCommand(checksListCmd)
	checksListCmd.Flags().BoolVarP(&checksListQuiet, "quiet", "q", false, "Only print check IDs")
	checksCmd.AddCommand(checksShowCmd)
}
