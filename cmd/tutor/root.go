package main

import (
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-tutor/internal/config"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
)

var (
	configPath string
	dbOverride string

	cfg *config.Config
	log *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Adaptive practice tutor",
	Long: `tutor picks the next practice topic from a learned value estimate and
updates that estimate from every answer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dbOverride != "" {
			c.Store.Path = dbOverride
		}
		l, err := logging.New(c.Log.Mode)
		if err != nil {
			return err
		}
		cfg, log = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tutor.yaml", "config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&dbOverride, "db", "", "SQLite database path (overrides config)")

	rootCmd.AddCommand(practiceCmd, serveCmd, inspectCmd, replayCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
