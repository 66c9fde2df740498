package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/aprilgo/internal/batch"
	"github.com/MeKo-Tech/aprilgo/internal/config"
)

// batchCmd represents the batch command for parallel image processing.
var batchCmd = &cobra.Command{
	Use:   "batch [paths...]",
	Short: "Detect tags in many images in parallel",
	Long: `Detect AprilTags in many image files using a pool of workers. Each
worker owns its own detector. Directories are scanned for supported images.

Supported formats: JPEG, PNG, BMP, TIFF, GIF

Examples:
  aprilgo batch captures/*.png
  aprilgo batch captures/ --recursive --workers 8
  aprilgo batch calib/ --black-border 2 --format csv --output tags.csv
  aprilgo batch captures/ --include 'cam0_*' --exclude '*_blurred.*' --progress`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatchCommand,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addDetectorFlags(batchCmd)
	addOutputFlags(batchCmd)

	batchCmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	batchCmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
	batchCmd.Flags().StringSlice("include", nil, "include only files matching these glob patterns")
	batchCmd.Flags().StringSlice("exclude", nil, "exclude files matching these glob patterns")
	batchCmd.Flags().Bool("continue-on-error", true, "keep going when an image fails")
	batchCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and statistics")
	batchCmd.Flags().Bool("stats", false, "print processing statistics after the results")
}

// configToBatchConfig maps centralized configuration to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	bc := batch.DefaultConfig()
	bc.Family = cfg.Detector.Family
	bc.BlackBorder = cfg.Detector.BlackBorder
	bc.Warmup = cfg.Detector.WarmupIterations
	bc.EngineFactory = engineFactory

	bc.OverlayDir = cfg.Output.OverlayDir
	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.Precision = cfg.Output.Precision

	bc.Workers = cfg.Batch.Workers
	bc.Recursive = cfg.Batch.Recursive
	bc.ContinueOnError = cfg.Batch.ContinueOnError

	bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	bc.ShowProgress, _ = cmd.Flags().GetBool("progress")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	return bc
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	bc := configToBatchConfig(cfg, cmd)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := batch.ProcessBatch(ctx, args, bc)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Precision); err != nil {
		return err
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats && !bc.Quiet {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}
