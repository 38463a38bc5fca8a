package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gridspace/grid-pages/internal/config"
	"github.com/gridspace/grid-pages/internal/service/preview"
)

var (
	// servePort to bind on the loopback interface.
	servePort int
	// serveRoot is the bundle directory to serve.
	serveRoot string

	// serveCmd previews a staged bundle.
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the staged bundle locally for preview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return preview.Run(cmd.Context(), &preview.Options{
				Root: serveRoot,
				Port: servePort,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", preview.DefaultPort, "port to bind")
	serveCmd.Flags().StringVarP(&serveRoot, "root", "r", config.DefaultOutDir, "directory to serve")
}
