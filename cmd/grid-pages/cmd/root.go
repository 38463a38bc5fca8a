package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gridspace/grid-pages/internal/logger"
	"github.com/gridspace/grid-pages/internal/service/pages"
	"github.com/gridspace/grid-pages/internal/version"
)

var (
	// configPath to the optional layout YAML file.
	configPath string
	// outDir overrides the bundle directory.
	outDir string
	// prepareOnly stops after the device pack is generated.
	prepareOnly bool
	// logLevel is the minimum level printed.
	logLevel string

	// rootCmd builds the device pack and the static bundle.
	rootCmd = &cobra.Command{
		Use:   "grid-pages",
		Short: "Generate the device pack and stage the static pages bundle",
		Long: `Regenerates src/pack/kiri-devs.js from the device profiles under src/kiri/dev
and stages a deployable static bundle in dist-pages.

With --prepare only the device pack is written, which is enough for local development.`,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: applyLogLevel,
		RunE: func(cmd *cobra.Command, _ []string) error {
			options := &pages.Options{
				ConfigPath:  configPath,
				OutDir:      outDir,
				PrepareOnly: prepareOnly,
			}

			return pages.Run(cmd.Context(), options)
		},
	}
)

// Execute runs the grid-pages CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	code := run(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}

// run executes the root command with args and returns the process exit code.
// Errors are reported once through the logger.
func run(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error(ctx, err)
		_ = logger.Logger().Sync()

		return 1
	}

	return 0
}

func applyLogLevel(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to layout file (default grid-pages.yaml if present)")
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "", "bundle output directory (overrides the layout)")
	rootCmd.Flags().BoolVar(&prepareOnly, "prepare", false, "only regenerate the device pack")

	rootCmd.AddCommand(serveCmd)
	version.AttachCobraVersionCommand(rootCmd)
}
