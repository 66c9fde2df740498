package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/aprilgo/internal/config"
	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/version"
)

var (
	// Configuration file path.
	cfgFile string
	// engineFactory replaces the compiled-in engine when set. Tests use it to
	// run commands without OpenCV.
	engineFactory detector.EngineFactory
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "aprilgo",
	Short: "AprilTag fiducial detection",
	Long: `aprilgo finds AprilTag fiducial markers in images and reports their ids,
corners, centers and homographies.

This tool provides:
- Detection in single images or whole directories
- Tag families 36h11 (always) plus 36h9, 25h9, 25h7 and 16h5 when built with tags
- Single (AprilTag) and double (Kalibr AprilGrid) black borders
- Text, JSON, CSV and YAML output and PNG overlays
- An HTTP and WebSocket server
- Per-layout latency measurements

Examples:
  aprilgo detect frame.png
  aprilgo detect grid.jpg --black-border 2 --format json
  aprilgo batch captures/ --recursive --workers 4
  aprilgo serve --port 8080`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	// Assigned here: the hook reads rootCmd's own flags.
	rootCmd.PersistentPreRunE = setupLogging

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/aprilgo, /etc/aprilgo)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// setupLogging loads the configuration and installs the JSON logger.
func setupLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg))
	return nil
}

// newLoader returns a loader on a fresh viper with the global flags bound,
// so repeated command runs in one process do not share state.
func newLoader() *config.Loader {
	v := viper.New()
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	return config.NewLoaderWithViper(v)
}

// loadConfig reads the config file, environment and bound flags.
func loadConfig() (*config.Config, error) {
	cfg, err := newLoader().LoadWithFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return cfg, nil
}

// GetConfig returns the effective configuration.
func GetConfig() (*config.Config, error) {
	return loadConfig()
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// detectorOptions builds constructor options from cfg plus the engine
// override.
func detectorOptions(cfg *config.Config) []detector.Option {
	opts := cfg.DetectorOptions()
	if engineFactory != nil {
		opts = append(opts, detector.WithEngineFactory(engineFactory))
	}
	return opts
}
