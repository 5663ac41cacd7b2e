package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nixplan/nixplan/cmd/nixplan/tui"
	"github.com/nixplan/nixplan/pkg/nixplan/config"
	"github.com/nixplan/nixplan/pkg/nixplan/logging"
	"github.com/nixplan/nixplan/pkg/nixplan/lsblk"
	"github.com/nixplan/nixplan/pkg/nixplan/plan"
)

var (
	flagOutput     string
	flagResume     string
	flagFilesystem string
	flagLogLevel   string
	flagLogFile    string

	rootCmd = &cobra.Command{
		Use:   "nixplan",
		Short: "Plan a NixOS disk layout interactively",
		Long: `Nixplan walks you through selecting a disk, editing its partition
layout, and exporting a disko-compatible provisioning document.

The running system's disks are never offered as targets, and nothing is
written to any disk: the output is a JSON plan for disko to apply.

Examples:
  nixplan                       # Interactive planner, writes nixplan.json
  nixplan -o /tmp/plan.json     # Write the plan elsewhere
  nixplan --resume plan.json    # Continue an exported session
  nixplan disks                 # List candidate disks and exit`,
		Args: cobra.NoArgs,
		RunE: runRoot,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "log file path (default: XDG state dir)")

	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "path the plan document is written to")
	rootCmd.Flags().StringVar(&flagResume, "resume", "", "resume from a previously exported plan")
	rootCmd.Flags().StringVarP(&flagFilesystem, "filesystem", "f", "", "default filesystem for new partitions")
}

// loadConfig merges the config file and environment with command-line
// overrides. Flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = flagOutput
	}
	if cmd.Flags().Changed("filesystem") {
		cfg.Filesystem = flagFilesystem
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFile != "" {
		cfg.Logging.Path = flagLogFile
	}
	return cfg, nil
}

// initLogging starts file logging so the TUI never writes to the terminal.
func initLogging(cfg *config.Config) error {
	path := cfg.Logging.Path
	if path == "" {
		path = logging.DefaultLogPath()
	}
	return logging.Init(logging.Config{Level: cfg.Logging.Level, Path: path})
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logging.Close() }()
	logger := logging.Get("cli")

	p := plan.New()
	if flagResume != "" {
		p, err = plan.Load(flagResume)
		if err != nil {
			return fmt.Errorf("failed to resume plan: %w", err)
		}
		logger.Info("resumed plan", "path", flagResume)
	}

	// Hotplug notifications are best effort; the planner works without
	// them and R rescans manually.
	watcher, err := lsblk.NewWatcher("/dev")
	if err != nil {
		logger.Warn("device watcher unavailable", "error", err)
		watcher = nil
	} else {
		defer func() { _ = watcher.Close() }()
	}

	return tui.Run(tui.Options{
		Plan:    p,
		Config:  cfg,
		Watcher: watcher,
		Output:  cfg.Output,
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
