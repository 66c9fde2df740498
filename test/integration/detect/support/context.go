// Package support holds the godog step definitions for the detection suite.
package support

import (
	"errors"
	"fmt"
	"net/http/httptest"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/detector/enginetest"
	"github.com/MeKo-Tech/aprilgo/internal/server"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Engine and detector under test
	Factory  *enginetest.Factory
	Detector *detector.Detector

	// Input of the next detection
	Buffer []byte
	Width  int
	Height int

	// Outcome of the last operation
	LastErr        error
	LastDetections []detector.TagDetection

	// Server state
	Server           *server.Server
	HTTPServer       *httptest.Server
	LastHTTPStatus   int
	LastHTTPResponse []byte
}

// NewTestContext returns a context whose engine reports nothing.
func NewTestContext() *TestContext {
	return &TestContext{Factory: enginetest.NewFactory(nil)}
}

// Cleanup releases the detector and server created by the scenario.
func (tc *TestContext) Cleanup() error {
	var errs []error
	if tc.HTTPServer != nil {
		tc.HTTPServer.Close()
	}
	if tc.Server != nil {
		errs = append(errs, tc.Server.Close())
	}
	if tc.Detector != nil {
		errs = append(errs, tc.Detector.Close())
	}
	return errors.Join(errs...)
}

// engine returns the only engine allocated so far.
func (tc *TestContext) engine() (*enginetest.Engine, error) {
	engines := tc.Factory.Engines()
	if len(engines) == 0 {
		return nil, errors.New("no engine was allocated")
	}
	return engines[len(engines)-1], nil
}

// errorKinds maps the names used in feature files to error values.
var errorKinds = map[string]error{}

func expectKind(err error, kind string) error {
	target, ok := errorKinds[kind]
	if !ok {
		return fmt.Errorf("unknown error kind %q in feature file", kind)
	}
	if err == nil {
		return fmt.Errorf("expected %s error, got success", kind)
	}
	if !errors.Is(err, target) {
		return fmt.Errorf("expected %s error, got %v", kind, err)
	}
	return nil
}
