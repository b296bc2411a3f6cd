package cli

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"eliwatch/internal/config"
	"eliwatch/internal/flags"
	"eliwatch/internal/preview"
)

var (
	serveDir  = filepath.Dir(config.DefaultOut)
	serveAddr = preview.DefaultAddr
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rendered output locally",
	Long: `Serve the rendered output directory over HTTP until interrupted.

Examples:
	eliwatch serve
	eliwatch serve --dir web --addr :8080
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log, err := commandLogger(cmd)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = log.Sync() }()

		ready := func(a net.Addr) {
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s/\n", serveDir, a)
		}
		if err := preview.Serve(cmd.Context(), serveAddr, serveDir, log, ready); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			_ = log.Sync()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveDir, flags.FlagDir, serveDir, "Rendered output directory")
	serveCmd.Flags().StringVar(&serveAddr, flags.FlagAddr, serveAddr, "Listen address")
}
