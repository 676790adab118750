package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/speeddraw/internal/config"
	"github.com/bryanchriswhite/speeddraw/internal/logger"
)

var (
	cfgFile   string
	logPretty bool
	rootCmd   = &cobra.Command{
		Use:   "speeddraw",
		Short: "speeddraw - Speed-drawing and paint-reveal animations",
		Long: `speeddraw turns a line-art image and its colored reference into a video
that first draws the line art stroke by stroke, then paints the colors in.

Features:
  • Skeleton-based drawing path extraction
  • Five paint-reveal styles
  • Full and drawing-only modes with custom colors
  • ffmpeg or GStreamer encoding
  • Batch runs from a YAML manifest
  • Live browser preview of the frames being rendered
  • Persistent configuration`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(viper.GetString("log_level"), logPretty)
		},
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/speeddraw/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "log-pretty", true, "human-readable console logs")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig reads the config file and applies every flag the user set.
// The logger is re-initialized with the resulting level.
func loadConfig() (*config.Manager, *config.Config, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := configMgr.WithOverrides(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.LogLevel, logPretty)
	logger.WithComponent("cli").Debug().
		Str("path", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")
	return configMgr, cfg, nil
}
