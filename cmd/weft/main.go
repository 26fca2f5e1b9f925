// Package main implements weft, a terminal multiplexer core with
// seamless pane navigation: one set of key bindings moves focus across
// both multiplexer panes and panes inside registered applications,
// negotiated over the OSC 8671 escape sequence.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/weftmux/weft/internal/config"
)

// Version information (set by goreleaser).
var (
	version = "dev"
	commit  = "none"
)

// Global flags.
var (
	debugMode  bool
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "weft",
		Short: "Terminal multiplexer with seamless pane navigation",
		Long: `weft - terminal multiplexer with seamless pane navigation

Panes inside registered applications (editors, nested multiplexers) and
weft's own panes share a single set of navigation key bindings. The two
layers coordinate over the OSC 8671 escape sequence, so a single
Ctrl+Arrow moves focus wherever the neighboring pane lives.`,
		Example: `  # Run weft
  weft

  # Run with debug logging
  weft --debug

  # Print the configuration file path
  weft config path

  # List the active keybindings
  weft keybinds list`,
		Version: fmt.Sprintf("%s (%s)", version, commit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (defaults to the XDG config dir)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage weft configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault()
			if err != nil {
				return err
			}
			fmt.Printf("Wrote default configuration to %s\n", path)
			return nil
		},
	})

	keybindsCmd := &cobra.Command{
		Use:   "keybinds",
		Short: "Inspect keybindings",
	}
	keybindsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the active keybindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printKeybinds(cfg)
			return nil
		},
	})

	rootCmd.AddCommand(configCmd, keybindsCmd)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

func newLogger(prefix string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	if debugMode {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
