// Package benchmark measures detector latency on real images.
package benchmark

import (
	"fmt"
	"image"
	"io"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/plane"
)

// MemoryStats holds memory usage statistics.
type MemoryStats struct {
	AllocBytes      uint64  // Currently allocated bytes
	TotalAllocBytes uint64  // Total allocated bytes (cumulative)
	SysBytes        uint64  // Total bytes from system
	NumGC           uint32  // Number of GC runs
	GCCPUFraction   float64 // Fraction of CPU time spent in GC
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		GCCPUFraction:   m.GCCPUFraction,
	}
}

// String returns a formatted string representation of memory stats.
func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d (%.2f%% CPU)",
		m.AllocBytes/1024,
		m.TotalAllocBytes/1024,
		m.SysBytes/1024,
		m.NumGC,
		m.GCCPUFraction*100)
}

// Result holds the latency distribution of one case.
type Result struct {
	Name       string
	Iterations int
	Tags       int // tags found by the last iteration
	Total      time.Duration
	Min        time.Duration
	Mean       time.Duration
	P50        time.Duration
	P95        time.Duration
	Max        time.Duration

	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Error        error
}

// PerSecond returns the sustained detection rate.
func (r Result) PerSecond() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Iterations) / r.Total.Seconds()
}

// AllocPerOp returns the bytes allocated per iteration.
func (r Result) AllocPerOp() uint64 {
	if r.Iterations == 0 || r.MemoryAfter.TotalAllocBytes < r.MemoryBefore.TotalAllocBytes {
		return 0
	}
	return (r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes) / uint64(r.Iterations)
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, %d tags, min %v, mean %v, p50 %v, p95 %v, max %v, %.1f/s, %d B/op",
		r.Name, r.Iterations, r.Tags, r.Min, r.Mean, r.P50, r.P95, r.Max, r.PerSecond(), r.AllocPerOp())
}

// Case is one measured operation. Func returns the number of tags found.
type Case struct {
	Name string
	Func func() (int, error)
}

// Suite runs cases and keeps the results of the last RunAll.
type Suite struct {
	cases   []Case
	results []Result
	mu      sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers a case.
func (s *Suite) Add(name string, fn func() (int, error)) {
	s.cases = append(s.cases, Case{Name: name, Func: fn})
}

// Names returns the registered case names in order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.cases))
	for i, c := range s.cases {
		names[i] = c.Name
	}
	return names
}

// Run runs the named case.
func (s *Suite) Run(name string, iterations int) Result {
	for _, c := range s.cases {
		if c.Name == name {
			return run(c, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs every case in registration order.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.cases))
	for _, c := range s.cases {
		s.results = append(s.results, run(c, iterations))
	}
	return s.results
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Fprint writes the results of the last RunAll to w.
func (s *Suite) Fprint(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func run(c Case, iterations int) Result {
	res := Result{Name: c.Name}
	if iterations <= 0 {
		res.Error = fmt.Errorf("iterations must be positive, got %d", iterations)
		return res
	}

	runtime.GC()
	res.MemoryBefore = GetMemoryStats()

	samples := make([]time.Duration, 0, iterations)
	for range iterations {
		start := time.Now()
		tags, err := c.Func()
		samples = append(samples, time.Since(start))
		if err != nil {
			res.Error = err
			break
		}
		res.Tags = tags
	}

	res.MemoryAfter = GetMemoryStats()
	res.Iterations = len(samples)
	summarize(&res, samples)
	return res
}

func summarize(res *Result, samples []time.Duration) {
	if len(samples) == 0 {
		return
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	for _, d := range sorted {
		res.Total += d
	}
	res.Min = sorted[0]
	res.Max = sorted[len(sorted)-1]
	res.Mean = res.Total / time.Duration(len(sorted))
	res.P50 = percentile(sorted, 0.50)
	res.P95 = percentile(sorted, 0.95)
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p * float64(len(sorted))))
	rank = max(rank, 1)
	return sorted[rank-1]
}

// AddDetectorCases registers one case per buffer layout for img, plus one
// for the image path through DetectImage.
func AddDetectorCases(s *Suite, d *detector.Detector, img image.Image) {
	rgba := imaging.Clone(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()

	rgb := make([]byte, 0, w*h*3)
	for i := 0; i < len(rgba.Pix); i += 4 {
		rgb = append(rgb, rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2])
	}
	gray := plane.ResolveLayout(rgba.Pix, w, h, plane.LayoutRGBA).Data

	buffers := []struct {
		layout plane.Layout
		buf    []byte
	}{
		{plane.LayoutGray, gray},
		{plane.LayoutRGB, rgb},
		{plane.LayoutRGBA, rgba.Pix},
	}
	for _, b := range buffers {
		s.Add(b.layout.String(), func() (int, error) {
			dets, err := d.Detect(b.buf, w, h)
			return len(dets), err
		})
	}
	s.Add("image", func() (int, error) {
		dets, err := d.DetectImage(img)
		return len(dets), err
	})
}
