// Package main is the entry point for the soundboard.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/soundboard/internal/logging"
	"github.com/dshills/soundboard/internal/options"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Flag values. Only flags the user set override the options file.
var (
	optionsFile string
	dataDir     string
	logLevel    string
	logFile     string
	listen      string
	debug       bool
	headless    bool
)

var rootCmd = &cobra.Command{
	Use:   "soundboard",
	Short: "Play sounds from global hotkeys",
	Long: `soundboard binds ten sound slots, stop, and set navigation to global
accelerators. Slots are filled from set files in the data directory's sets
folder; settings.json holds the accelerators.

Running soundboard again while an instance is up raises the running one.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runApp,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("soundboard %s (commit %s, built %s)\n", version, commit, date))

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&optionsFile, "config", "c", "", "options file (default "+options.DefaultFile()+")")
	flags.StringVar(&dataDir, "data-dir", "", "directory holding settings.json and sets")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file")
	flags.StringVar(&listen, "listen", "", "bridge address; empty string disables the bridge")
	flags.BoolVar(&debug, "debug", false, "add developer menu entries")
	flags.BoolVar(&headless, "headless", false, "run without the terminal surface")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(optionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "soundboard %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	},
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the effective options as TOML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := loadOptions(cmd)
		if err != nil {
			return err
		}
		data, err := opts.TOML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// loadOptions layers the options file, the environment and the flags the
// user set.
func loadOptions(cmd *cobra.Command) (options.Options, error) {
	opts, err := options.Load(optionsFile)
	if err != nil {
		return options.Options{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		opts.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		opts.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		opts.LogFile = logFile
	}
	if flags.Changed("listen") {
		opts.Listen = listen
	}
	if flags.Changed("debug") {
		opts.Debug = debug
	}
	if flags.Changed("headless") {
		opts.Headless = headless
	}

	if abs, err := filepath.Abs(opts.DataDir); err == nil {
		opts.DataDir = abs
	}
	return opts, opts.Validate()
}

// newLogger opens the log destination. A surface that owns the screen
// cannot share it with log output, so logs then go to a file in the data
// directory unless one was named. Debug mode also logs at debug level.
func newLogger(opts options.Options, ownsScreen bool) (*logging.Logger, io.Closer, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(opts.LogLevel)

	var closer io.Closer = io.NopCloser(nil)
	path := opts.LogFile
	if path == "" && ownsScreen {
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, nil, err
		}
		path = filepath.Join(opts.DataDir, "soundboard.log")
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		cfg.Output, closer = f, f
	}

	logger := logging.New(cfg)
	if opts.Debug {
		logger.SetLevel(logging.LevelDebug)
	}
	return logger, closer, nil
}
