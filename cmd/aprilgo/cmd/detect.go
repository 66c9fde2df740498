package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/output"
	"github.com/MeKo-Tech/aprilgo/internal/overlay"
	"github.com/MeKo-Tech/aprilgo/internal/utils"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect [images...]",
	Short: "Detect AprilTags in one or more images",
	Long: `Detect AprilTags in the given image files and print one result per image.

Supported formats: JPEG, PNG, BMP, TIFF, GIF

Examples:
  aprilgo detect frame.png
  aprilgo detect grid.jpg --black-border 2 --format json
  aprilgo detect *.png --family 16h5 --overlay-dir overlays/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	addDetectorFlags(detectCmd)
	addOutputFlags(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	d, err := detector.New(cfg.Detector.Family, detectorOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer func() { _ = d.Close() }()

	ovOpts := overlay.DefaultOptions()
	if c, err := overlay.ParseHexColor(cfg.Output.OverlayColor); err == nil {
		ovOpts.OutlineColor = c
	}

	results := make([]*detector.Result, 0, len(args))
	failed := 0
	for _, path := range args {
		res := detectFile(d, path, cfg.Output.OverlayDir, ovOpts)
		if res.Error != "" {
			failed++
			slog.Warn("Detection failed", "file", path, "error", res.Error)
		}
		results = append(results, res)
	}

	out, err := output.Format(results, cfg.Output.Format, cfg.Output.Precision)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), cfg.Output.File, out); err != nil {
		return err
	}

	if failed == len(args) {
		return fmt.Errorf("all %d image(s) failed", failed)
	}
	return nil
}

func detectFile(d *detector.Detector, path, overlayDir string, opts overlay.Options) *detector.Result {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		c := d.Config()
		return &detector.Result{Source: path, Family: c.Family().Name, BlackBorder: c.BlackBorder(), Error: err.Error()}
	}

	buf, w, h := utils.PackImage(img)
	res := d.DetectResult(path, buf, w, h)
	if overlayDir != "" && res.Error == "" {
		if out, err := overlay.Save(overlayDir, path, overlay.Render(img, res.Detections, opts)); err != nil {
			slog.Warn("Failed to save overlay", "file", path, "error", err)
		} else {
			slog.Info("Overlay written", "file", out)
		}
	}
	return res
}

func writeOutput(w io.Writer, file, out string) error {
	if file == "" {
		_, err := io.WriteString(w, out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
