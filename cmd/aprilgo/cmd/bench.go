package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/aprilgo/internal/benchmark"
	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/utils"
)

var benchCmd = &cobra.Command{
	Use:   "bench [image]",
	Short: "Measure detection latency on an image",
	Long: `Run detection repeatedly on one image and report the latency distribution
for each buffer layout (gray, rgb, rgba) and for the decoded image itself.

Examples:
  aprilgo bench frame.png
  aprilgo bench grid.jpg --black-border 2 --iterations 500
  aprilgo bench frame.png --layout gray`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	addDetectorFlags(benchCmd)
	benchCmd.Flags().IntP("iterations", "n", 100, "detections per layout")
	benchCmd.Flags().StringSlice("layout", nil, "only run these cases (gray, rgb, rgba, image)")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations <= 0 {
		return fmt.Errorf("--iterations must be positive, got %d", iterations)
	}
	only, _ := cmd.Flags().GetStringSlice("layout")

	img, _, err := utils.LoadImage(args[0])
	if err != nil {
		return err
	}

	d, err := detector.New(cfg.Detector.Family, detectorOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}
	defer func() { _ = d.Close() }()

	suite := benchmark.NewSuite()
	benchmark.AddDetectorCases(suite, d, img)

	names := suite.Names()
	for _, name := range only {
		if !slices.Contains(names, name) {
			return fmt.Errorf("unknown layout %q (available: %v)", name, names)
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s, %dx%d, family %s, black border %d\n",
		args[0], img.Bounds().Dx(), img.Bounds().Dy(), cfg.Detector.Family, cfg.Detector.BlackBorder)

	if len(only) == 0 {
		suite.RunAll(iterations)
		suite.Fprint(out)
		return firstError(suite.Results())
	}

	var results []benchmark.Result
	for _, name := range only {
		r := suite.Run(name, iterations)
		_, _ = fmt.Fprintln(out, r.String())
		results = append(results, r)
	}
	return firstError(results)
}

func firstError(results []benchmark.Result) error {
	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("%s: %w", r.Name, r.Error)
		}
	}
	return nil
}
