package support

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/detector/enginetest"
	"github.com/MeKo-Tech/aprilgo/internal/family"
	"github.com/MeKo-Tech/aprilgo/internal/plane"
)

func init() {
	errorKinds["unknown family"] = family.ErrUnknownFamily
	errorKinds["invalid config"] = detector.ErrInvalidConfig
	errorKinds["invalid argument"] = detector.ErrInvalidArgument
	errorKinds["invalid buffer size"] = plane.ErrInvalidBufferSize
	errorKinds["closed"] = detector.ErrClosed
	errorKinds["engine"] = detector.ErrEngine
}

// RegisterDetectorSteps registers steps driving the detector directly.
func (tc *TestContext) RegisterDetectorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an engine that reports tags? ([\d, ]+)$`, tc.anEngineThatReportsTags)
	sc.Step(`^an engine that fails with "([^"]*)"$`, tc.anEngineThatFailsWith)

	sc.Step(`^I create a detector for family "([^"]*)"$`, tc.iCreateADetector)
	sc.Step(`^I create a detector for family "([^"]*)" with black border (-?\d+)$`, tc.iCreateADetectorWithBorder)
	sc.Step(`^the detector is created$`, tc.theDetectorIsCreated)
	sc.Step(`^detector creation fails with an? (.+) error$`, tc.theLastOperationFailsWith)
	sc.Step(`^the detector reports family "([^"]*)" and black border (\d+)$`, tc.theDetectorReports)
	sc.Step(`^(\d+) engines? (?:was|were) allocated$`, tc.enginesWereAllocated)

	sc.Step(`^a (\d+)x(\d+) (gray|rgb|rgba) image filled with (\d+)$`, tc.anImageFilledWith)
	sc.Step(`^a (\d+)x(\d+) rgb image of color (\d+),(\d+),(\d+)$`, tc.anRGBImageOfColor)
	sc.Step(`^a (\d+) byte buffer for a (-?\d+)x(-?\d+) image$`, tc.aBufferForImage)
	sc.Step(`^no buffer for a (\d+)x(\d+) image$`, tc.noBuffer)

	sc.Step(`^I run detection$`, tc.iRunDetection)
	sc.Step(`^I run detection (\d+) times$`, tc.iRunDetectionTimes)
	sc.Step(`^detection succeeds with no tags$`, tc.detectionSucceedsWithNoTags)
	sc.Step(`^detection succeeds with tags? ([\d, ]+)$`, tc.detectionSucceedsWithTags)
	sc.Step(`^detection fails with an? (.+) error$`, tc.theLastOperationFailsWith)
	sc.Step(`^every detection is centred between its corners$`, tc.everyDetectionIsComplete)
	sc.Step(`^the engine saw a copy of the input buffer$`, tc.theEngineSawACopy)

	sc.Step(`^the engine received a (\d+)x(\d+) plane$`, tc.theEngineReceivedAPlane)
	sc.Step(`^every plane pixel is (\d+)$`, tc.everyPlanePixelIs)
	sc.Step(`^the engine ran (\d+) times?$`, tc.theEngineRan)

	sc.Step(`^I close the detector$`, tc.iCloseTheDetector)
	sc.Step(`^the engine was released (\d+) times?$`, tc.theEngineWasReleased)
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad tag id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (tc *TestContext) anEngineThatReportsTags(list string) error {
	ids, err := parseIDs(list)
	if err != nil {
		return err
	}
	dets := make([]detector.RawDetection, len(ids))
	for i, id := range ids {
		dets[i] = enginetest.Square(id, float64(40+60*i), 40, 20)
	}
	tc.Factory = enginetest.NewFactory(func(e *enginetest.Engine) { e.SetDetections(dets...) })
	return nil
}

func (tc *TestContext) anEngineThatFailsWith(msg string) error {
	tc.Factory = enginetest.NewFactory(func(e *enginetest.Engine) { e.SetError(fmt.Errorf("%s", msg)) })
	return nil
}

func (tc *TestContext) iCreateADetector(familyID string) error {
	tc.Detector, tc.LastErr = detector.New(familyID, detector.WithEngineFactory(tc.Factory.Func()))
	return nil
}

func (tc *TestContext) iCreateADetectorWithBorder(familyID string, border int) error {
	tc.Detector, tc.LastErr = detector.New(familyID,
		detector.WithBlackBorder(border),
		detector.WithEngineFactory(tc.Factory.Func()))
	return nil
}

func (tc *TestContext) theDetectorIsCreated() error {
	if tc.LastErr != nil {
		return fmt.Errorf("detector creation failed: %w", tc.LastErr)
	}
	if tc.Detector == nil {
		return fmt.Errorf("no detector")
	}
	return nil
}

func (tc *TestContext) theLastOperationFailsWith(kind string) error {
	return expectKind(tc.LastErr, kind)
}

func (tc *TestContext) theDetectorReports(familyID string, border int) error {
	if err := tc.theDetectorIsCreated(); err != nil {
		return err
	}
	cfg := tc.Detector.Config()
	if cfg.Family().Name != familyID || cfg.BlackBorder() != border {
		return fmt.Errorf("detector config is %s, want family=%s black_border=%d", cfg, familyID, border)
	}
	return nil
}

func (tc *TestContext) enginesWereAllocated(n int) error {
	if got := tc.Factory.Allocations(); got != n {
		return fmt.Errorf("expected %d engine allocations, got %d", n, got)
	}
	return nil
}

func (tc *TestContext) anImageFilledWith(w, h int, layout string, v int) error {
	channels := map[string]int{"gray": 1, "rgb": 3, "rgba": 4}[layout]
	tc.Width, tc.Height = w, h
	tc.Buffer = bytes.Repeat([]byte{byte(v)}, w*h*channels)
	return nil
}

func (tc *TestContext) anRGBImageOfColor(w, h, r, g, b int) error {
	tc.Width, tc.Height = w, h
	tc.Buffer = bytes.Repeat([]byte{byte(r), byte(g), byte(b)}, w*h)
	return nil
}

func (tc *TestContext) aBufferForImage(n, w, h int) error {
	tc.Width, tc.Height = w, h
	tc.Buffer = make([]byte, n)
	return nil
}

func (tc *TestContext) noBuffer(w, h int) error {
	tc.Width, tc.Height = w, h
	tc.Buffer = nil
	return nil
}

func (tc *TestContext) iRunDetection() error {
	if tc.Detector == nil {
		return fmt.Errorf("no detector: %v", tc.LastErr)
	}
	tc.LastDetections, tc.LastErr = tc.Detector.Detect(tc.Buffer, tc.Width, tc.Height)
	return nil
}

func (tc *TestContext) iRunDetectionTimes(n int) error {
	for range n {
		if err := tc.iRunDetection(); err != nil {
			return err
		}
		if tc.LastErr != nil {
			return tc.LastErr
		}
	}
	return nil
}

func (tc *TestContext) detectionSucceedsWithNoTags() error {
	if tc.LastErr != nil {
		return fmt.Errorf("detection failed: %w", tc.LastErr)
	}
	if len(tc.LastDetections) != 0 {
		return fmt.Errorf("expected no tags, got %d", len(tc.LastDetections))
	}
	return nil
}

func (tc *TestContext) detectionSucceedsWithTags(list string) error {
	if tc.LastErr != nil {
		return fmt.Errorf("detection failed: %w", tc.LastErr)
	}
	want, err := parseIDs(list)
	if err != nil {
		return err
	}
	got := make([]int, len(tc.LastDetections))
	for i, d := range tc.LastDetections {
		got[i] = d.ID
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		return fmt.Errorf("expected tags %v, got %v", want, got)
	}
	return nil
}

func (tc *TestContext) everyDetectionIsComplete() error {
	for _, d := range tc.LastDetections {
		var mx, my float64
		for _, c := range d.Corners {
			mx += c[0] / 4
			my += c[1] / 4
		}
		if math.Abs(mx-d.Center[0]) > 1e-9 || math.Abs(my-d.Center[1]) > 1e-9 {
			return fmt.Errorf("tag %d center %v is not the corner centroid (%v, %v)", d.ID, d.Center, mx, my)
		}
	}
	return nil
}

func (tc *TestContext) theEngineSawACopy() error {
	e, err := tc.engine()
	if err != nil {
		return err
	}
	p := e.LastPlane()
	if p == nil {
		return fmt.Errorf("engine saw no plane")
	}
	if len(tc.Buffer) > 0 && len(p.Data) > 0 && &tc.Buffer[0] == &p.Data[0] {
		return fmt.Errorf("engine received the caller's buffer instead of a copy")
	}
	return nil
}

func (tc *TestContext) theEngineReceivedAPlane(w, h int) error {
	e, err := tc.engine()
	if err != nil {
		return err
	}
	p := e.LastPlane()
	if p == nil || p.Width != w || p.Height != h || len(p.Data) != w*h {
		return fmt.Errorf("engine plane is %+v, want %dx%d", p, w, h)
	}
	return nil
}

func (tc *TestContext) everyPlanePixelIs(v int) error {
	e, err := tc.engine()
	if err != nil {
		return err
	}
	for i, px := range e.LastPlane().Data {
		if int(px) != v {
			return fmt.Errorf("plane pixel %d is %d, want %d", i, px, v)
		}
	}
	return nil
}

func (tc *TestContext) theEngineRan(n int) error {
	e, err := tc.engine()
	if err != nil {
		return err
	}
	if got := e.Extracts(); got != n {
		return fmt.Errorf("engine ran %d times, want %d", got, n)
	}
	return nil
}

func (tc *TestContext) iCloseTheDetector() error {
	if tc.Detector == nil {
		return fmt.Errorf("no detector")
	}
	return tc.Detector.Close()
}

func (tc *TestContext) theEngineWasReleased(n int) error {
	total := 0
	for _, e := range tc.Factory.Engines() {
		total += e.Closes()
	}
	if total != n {
		return fmt.Errorf("engine released %d times, want %d", total, n)
	}
	return nil
}
