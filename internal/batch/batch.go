// Package batch runs tag detection over many image files with a pool of
// workers, each owning its own detector.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/output"
)

// ErrNoImages is returned when discovery finds nothing to process.
var ErrNoImages = errors.New("no image files found")

// Result holds the result of batch processing, in discovery order.
type Result struct {
	Results     []*detector.Result
	ImagePaths  []string
	Duration    time.Duration
	WorkerCount int
}

type job struct {
	index int
	path  string
}

type jobResult struct {
	index  int
	result *detector.Result
}

// ProcessBatch discovers images under paths and detects tags in all of them.
func ProcessBatch(ctx context.Context, paths []string, cfg *Config) (*Result, error) {
	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	// Reject bad settings before any engine is allocated.
	if _, err := detector.NewConfig(cfg.Family, cfg.detectorOptions()...); err != nil {
		return nil, err
	}

	workers := max(1, min(cfg.Workers, len(files)))
	detectors, err := newDetectors(workers, cfg)
	if err != nil {
		return nil, err
	}
	defer closeDetectors(detectors)

	progress := cfg.progress()
	progress.OnStart(len(files))
	defer progress.OnComplete()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	jobs := make(chan job)
	results := make(chan jobResult, len(files))

	var wg sync.WaitGroup
	for _, d := range detectors {
		wg.Add(1)
		go worker(ctx, d, cfg.OverlayDir, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, f := range files {
			select {
			case jobs <- job{index: i, path: f}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*detector.Result, len(files))
	var firstErr error
	done := 0
	for r := range results {
		ordered[r.index] = r.result
		done++
		progress.OnProgress(done, len(files))
		if r.result.Error != "" {
			progress.OnError(r.index, errors.New(r.result.Error))
			if !cfg.ContinueOnError && firstErr == nil {
				firstErr = fmt.Errorf("%s: %s", r.result.Source, r.result.Error)
				cancel()
			}
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil && done < len(files) {
		return nil, err
	}

	return &Result{
		Results:     ordered,
		ImagePaths:  files,
		Duration:    time.Since(start),
		WorkerCount: workers,
	}, nil
}

func newDetectors(n int, cfg *Config) ([]*detector.Detector, error) {
	detectors := make([]*detector.Detector, 0, n)
	for range n {
		d, err := detector.New(cfg.Family, cfg.detectorOptions()...)
		if err != nil {
			closeDetectors(detectors)
			return nil, fmt.Errorf("failed to create detector: %w", err)
		}
		detectors = append(detectors, d)
	}
	slog.Debug("Batch detectors ready", "workers", n, "family", cfg.Family, "black_border", cfg.BlackBorder)
	return detectors, nil
}

func closeDetectors(detectors []*detector.Detector) {
	for _, d := range detectors {
		if err := d.Close(); err != nil {
			slog.Warn("Failed to close detector", "error", err)
		}
	}
}

func worker(ctx context.Context, d *detector.Detector, overlayDir string,
	jobs <-chan job, results chan<- jobResult, wg *sync.WaitGroup,
) {
	defer wg.Done()
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			res := processSingleImage(d, j.path, overlayDir)
			select {
			case results <- jobResult{index: j.index, result: res}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// FormatResults formats the batch results in the given format.
func (r *Result) FormatResults(format string, precision int) (string, error) {
	return output.Format(r.Results, format, precision)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, precision int) error {
	out, err := r.FormatResults(format, precision)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err = io.WriteString(w, out)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// Stats summarizes a batch run.
type Stats struct {
	Images          int
	Failed          int
	Tags            int
	Workers         int
	Duration        time.Duration
	AveragePerImage time.Duration
	ImagesPerSec    float64
}

// Stats computes processing statistics.
func (r *Result) Stats() Stats {
	s := Stats{Images: len(r.Results), Workers: r.WorkerCount, Duration: r.Duration}
	for _, res := range r.Results {
		if res == nil || res.Error != "" {
			s.Failed++
			continue
		}
		s.Tags += len(res.Detections)
	}
	if s.Images > 0 {
		s.AveragePerImage = r.Duration / time.Duration(s.Images)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		s.ImagesPerSec = float64(s.Images) / secs
	}
	return s
}

// PrintStats prints processing statistics to w.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", s.Images)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Tags found: %d\n", s.Tags)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", s.Workers)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", s.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", s.AveragePerImage.Round(time.Microsecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", s.ImagesPerSec)
}
