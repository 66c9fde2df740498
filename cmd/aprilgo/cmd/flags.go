package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/aprilgo/internal/config"
)

// addDetectorFlags registers the flags shared by detect, batch and serve.
func addDetectorFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("family", "f", "36h11", "tag family, see the families command")
	cmd.Flags().Int("black-border", 1, "black border width in bits: 1 for AprilTag, 2 for Kalibr AprilGrid")
	cmd.Flags().Int("warmup", 0, "warm-up detections to run before the first image")
}

// addOutputFlags registers result formatting flags.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "text", "output format: text, json, csv or yaml")
	cmd.Flags().StringP("output", "o", "", "write results to this file instead of stdout")
	cmd.Flags().Int("precision", 2, "decimal places for coordinates in text and csv output")
	cmd.Flags().String("overlay-dir", "", "write <name>_overlay.png images into this directory")
}

// applyFlags copies every flag the user set explicitly onto cfg, so that
// flags win over the config file and environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if f := fl.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}

	set("family", func() { cfg.Detector.Family, _ = fl.GetString("family") })
	set("black-border", func() { cfg.Detector.BlackBorder, _ = fl.GetInt("black-border") })
	set("warmup", func() { cfg.Detector.WarmupIterations, _ = fl.GetInt("warmup") })

	set("format", func() { cfg.Output.Format, _ = fl.GetString("format") })
	set("output", func() { cfg.Output.File, _ = fl.GetString("output") })
	set("precision", func() { cfg.Output.Precision, _ = fl.GetInt("precision") })
	set("overlay-dir", func() { cfg.Output.OverlayDir, _ = fl.GetString("overlay-dir") })
	set("overlay-color", func() { cfg.Output.OverlayColor, _ = fl.GetString("overlay-color") })

	set("workers", func() { cfg.Batch.Workers, _ = fl.GetInt("workers") })
	set("recursive", func() { cfg.Batch.Recursive, _ = fl.GetBool("recursive") })
	set("continue-on-error", func() { cfg.Batch.ContinueOnError, _ = fl.GetBool("continue-on-error") })

	set("host", func() { cfg.Server.Host, _ = fl.GetString("host") })
	set("port", func() { cfg.Server.Port, _ = fl.GetInt("port") })
	set("cors-origin", func() { cfg.Server.CORSOrigin, _ = fl.GetString("cors-origin") })
	set("max-upload-size", func() { cfg.Server.MaxUploadMB, _ = fl.GetInt("max-upload-size") })
	set("timeout", func() { cfg.Server.TimeoutSec, _ = fl.GetInt("timeout") })
	set("shutdown-timeout", func() { cfg.Server.ShutdownTimeout, _ = fl.GetInt("shutdown-timeout") })
	set("overlay-enable", func() { cfg.Server.OverlayEnabled, _ = fl.GetBool("overlay-enable") })

	return cfg.Validate()
}

// commandConfig loads the configuration and applies cmd's flags.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
