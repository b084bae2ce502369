package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/config"
	apperrors "github.com/Knaeckebrothero/Superhuman-Remote-Worker-sub003/internal/errors"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var appErr *apperrors.Error
		if verbose && errors.As(err, &appErr) {
			fmt.Fprint(os.Stderr, appErr.DetailedString())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cockpit",
	Short: "Graph cockpit - debug backend for the agent graph pipeline",
	Long: `The graph cockpit reconstructs what a multi-agent pipeline did to the
property graph, statement by statement, from its audit trail. It serves
per-statement deltas, periodic state snapshots, and aggregate change
statistics for timeline scrubbing.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .graph-cockpit/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"cockpit %s (built %s, commit %s)\n", Version, BuildTime, GitCommit))
}
