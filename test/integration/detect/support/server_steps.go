package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/aprilgo/internal/server"
)

// RegisterServerSteps registers steps driving the HTTP API.
func (tc *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a detection server$`, tc.aDetectionServer)
	sc.Step(`^a detection server for family "([^"]*)"$`, tc.aDetectionServerForFamily)
	sc.Step(`^I post the image to "([^"]*)"$`, tc.iPostTheImageTo)
	sc.Step(`^I get "([^"]*)"$`, tc.iGet)
	sc.Step(`^the response status is (\d+)$`, tc.theResponseStatusIs)
	sc.Step(`^the response error kind is "([^"]*)"$`, tc.theResponseErrorKindIs)
	sc.Step(`^the response lists tags? ([\d, ]+)$`, tc.theResponseListsTags)
	sc.Step(`^the response reports family "([^"]*)" and black border (\d+)$`, tc.theResponseReportsFamily)
}

func (tc *TestContext) aDetectionServer() error {
	return tc.aDetectionServerForFamily("")
}

func (tc *TestContext) aDetectionServerForFamily(familyID string) error {
	s, err := server.NewServer(server.Config{
		CORSOrigin:     "*",
		MaxUploadMB:    4,
		OverlayEnabled: true,
		Family:         familyID,
		EngineFactory:  tc.Factory.Func(),
	})
	if err != nil {
		tc.LastErr = err
		return nil
	}
	tc.Server = s
	tc.HTTPServer = httptest.NewServer(s.Handler())
	return nil
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPServer.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.LastHTTPStatus = resp.StatusCode
	tc.LastHTTPResponse = body
	return nil
}

func (tc *TestContext) iPostTheImageTo(path string) error {
	if tc.HTTPServer == nil {
		return fmt.Errorf("no server running: %v", tc.LastErr)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	url := fmt.Sprintf("%s%s%swidth=%d&height=%d", tc.HTTPServer.URL, path, sep, tc.Width, tc.Height)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(tc.Buffer))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return tc.do(req)
}

func (tc *TestContext) iGet(path string) error {
	if tc.HTTPServer == nil {
		return fmt.Errorf("no server running: %v", tc.LastErr)
	}
	req, err := http.NewRequest(http.MethodGet, tc.HTTPServer.URL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req)
}

func (tc *TestContext) theResponseStatusIs(status int) error {
	if tc.LastHTTPStatus != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.LastHTTPStatus, tc.LastHTTPResponse)
	}
	return nil
}

func (tc *TestContext) theResponseErrorKindIs(kind string) error {
	var resp server.ErrorResponse
	if err := json.Unmarshal(tc.LastHTTPResponse, &resp); err != nil {
		return fmt.Errorf("response is not an error document: %w: %s", err, tc.LastHTTPResponse)
	}
	if resp.Kind != kind {
		return fmt.Errorf("expected error kind %q, got %q (%s)", kind, resp.Kind, resp.Error)
	}
	return nil
}

func (tc *TestContext) detectResponse() (*server.DetectResponse, error) {
	var resp server.DetectResponse
	if err := json.Unmarshal(tc.LastHTTPResponse, &resp); err != nil {
		return nil, fmt.Errorf("response is not a detect document: %w: %s", err, tc.LastHTTPResponse)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("response carries no result: %s", tc.LastHTTPResponse)
	}
	return &resp, nil
}

func (tc *TestContext) theResponseListsTags(list string) error {
	want, err := parseIDs(list)
	if err != nil {
		return err
	}
	resp, err := tc.detectResponse()
	if err != nil {
		return err
	}
	if got := resp.IDs(); fmt.Sprint(got) != fmt.Sprint(want) {
		return fmt.Errorf("expected tags %v, got %v", want, got)
	}
	return nil
}

func (tc *TestContext) theResponseReportsFamily(familyID string, border int) error {
	resp, err := tc.detectResponse()
	if err != nil {
		return err
	}
	if resp.Family != familyID || resp.BlackBorder != border {
		return fmt.Errorf("response reports %s/%d, want %s/%d", resp.Family, resp.BlackBorder, familyID, border)
	}
	return nil
}
