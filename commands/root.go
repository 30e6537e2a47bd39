package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"serialtool/config"
)

var (
	configPath string
	debugMode  bool
)

// BuildInfo identifies the binary
type BuildInfo struct {
	Version   string
	BuildTime string
}

// NewRootCommand creates the root command
func NewRootCommand(info BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "serialtool",
		Short:         "Interactive serial port terminal",
		Long:          `serialtool opens a serial port, streams received bytes as ASCII or hex, sends typed or stored commands and keeps an append-only traffic log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(NewMonitorCommand(info))
	rootCmd.AddCommand(NewPortsCommand())
	rootCmd.AddCommand(NewCommandsCommand())
	rootCmd.AddCommand(NewLoopbackCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewVersionCommand(info))

	return rootCmd
}

// Execute runs the root command
func Execute(info BuildInfo) {
	rootCmd := NewRootCommand(info)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration named by --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// NewVersionCommand creates the version command
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "serialtool version %s (built %s)\n", info.Version, info.BuildTime)
		},
	}
}

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration is valid")
			fmt.Fprintf(out, "  Instance: %s\n", cfg.App.InstanceID)
			fmt.Fprintf(out, "  Default port: %s at %d baud, %s mode\n", displayDevice(cfg.Serial.Device), cfg.Serial.BaudRate, cfg.Serial.Mode)
			fmt.Fprintf(out, "  Offered baud rates: %v\n", cfg.Serial.BaudRates)
			fmt.Fprintf(out, "  Event log: %s\n", cfg.EventLog.Directory)
			fmt.Fprintf(out, "  Command library: %s\n", cfg.Library.Path)
			if cfg.Monitoring.Enabled {
				fmt.Fprintf(out, "  Monitoring: %s\n", cfg.Monitoring.ListenAddr())
			}
			return nil
		},
	}
}

func displayDevice(device string) string {
	if device == "" {
		return "(none)"
	}
	return device
}
