package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"asset-dedup/internal/config"
	"asset-dedup/pkg/ui"
)

var (
	configFile string
	verbose    bool
	theme      string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "asset-dedup",
	Short: "Find and remove duplicate image assets",
	Long: ui.StyleTitle.Render("asset-dedup") + " - image deduplication and usage tracking\n\n" +
		"Hashes catalogued images, resolves where templates and posts reference them,\n" +
		"groups duplicates and removes only the copies nothing uses.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeApp,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default configs/config.local.yaml or configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "auto", "color theme: auto, dark or light")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(serveCmd)
}

// initializeApp builds the logger and loads and validates configuration.
// Any error here is a setup error and aborts the run.
func initializeApp(cmd *cobra.Command, args []string) error {
	ui.SetTheme(theme)

	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = c
	return nil
}
