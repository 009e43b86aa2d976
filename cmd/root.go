package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/iapd-pipeline/internal/config"
	"github.com/sells-group/iapd-pipeline/internal/feed"
)

// Exit codes reported to the scheduler.
const (
	exitOK     = 0
	exitConfig = 1
	exitFeed   = 2
	exitFatal  = 3
)

// errConfig marks configuration-phase failures for exit-code mapping.
var errConfig = errors.New("configuration error")

var (
	cfg     *config.Config
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "iapd",
	Short: "SEC IAPD brochure pipeline",
	Long:  "Ingests the SEC IAPD daily firm feed, downloads Form ADV Part 2 brochures, classifies their text, and maintains a cumulative firm/brochure dataset.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("%w: %v", errConfig, err)
		}
		cfg = c

		if err := config.InitLogger(logConfig(cfg.Log)); err != nil {
			return fmt.Errorf("%w: %v", errConfig, err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// logConfig folds the verbose flag over the configured log level. Verbosity
// changes logging only, never outputs.
func logConfig(base config.LogConfig) config.LogConfig {
	if verbose {
		base.Level = "debug"
	}
	return base
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errConfig):
		return exitConfig
	case errors.Is(err, feed.ErrFeedUnavailable):
		return exitFeed
	default:
		return exitFatal
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
