// Package server exposes tag detection over HTTP and WebSocket.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/family"
	"github.com/MeKo-Tech/aprilgo/internal/overlay"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	detectors      *detectorCache
	defaultKey     detectorKey
	corsOrigin     string
	maxUploadMB    int64
	timeout        time.Duration
	overlayEnabled bool
	overlayOptions overlay.Options
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	CORSOrigin     string
	MaxUploadMB    int64
	TimeoutSec     int
	OverlayEnabled bool
	OverlayColor   string

	// Defaults for requests that do not name a family or border.
	Family      string
	BlackBorder int
	Warmup      int

	// EngineFactory overrides the compiled-in engine; nil keeps the default.
	EngineFactory detector.EngineFactory
}

// Response types for API endpoints.
type HealthResponse struct {
	Status    string   `json:"status"`
	Version   string   `json:"version,omitempty"`
	Time      string   `json:"time"`
	Detectors []string `json:"detectors"`
}

type FamilyInfo struct {
	Name               string `json:"name"`
	Bits               int    `json:"bits"`
	MinHammingDistance int    `json:"min_hamming_distance"`
	Codes              int    `json:"codes"`
	MaxID              int    `json:"max_id"`
	Default            bool   `json:"default,omitempty"`
}

type FamiliesResponse struct {
	Families []FamilyInfo `json:"families"`
	Count    int          `json:"count"`
}

// DetectResponse wraps one image result with the request id.
type DetectResponse struct {
	RequestID string `json:"request_id"`
	*detector.Result
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// NewServer validates the defaults and creates the default detector so a
// misconfigured or engine-less build fails at startup.
func NewServer(config Config) (*Server, error) {
	if config.Family == "" {
		config.Family = family.Default
	}
	if config.BlackBorder == 0 {
		config.BlackBorder = detector.DefaultBlackBorder
	}

	var opts []detector.Option
	if config.Warmup > 0 {
		opts = append(opts, detector.WithWarmup(config.Warmup))
	}
	if config.EngineFactory != nil {
		opts = append(opts, detector.WithEngineFactory(config.EngineFactory))
	}

	ovOpts := overlay.DefaultOptions()
	if config.OverlayColor != "" {
		c, err := overlay.ParseHexColor(config.OverlayColor)
		if err != nil {
			return nil, err
		}
		ovOpts.OutlineColor = c
	}

	s := &Server{
		detectors:      newDetectorCache(opts...),
		defaultKey:     detectorKey{family: config.Family, blackBorder: config.BlackBorder},
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    config.MaxUploadMB,
		timeout:        time.Duration(config.TimeoutSec) * time.Second,
		overlayEnabled: config.OverlayEnabled,
		overlayOptions: ovOpts,
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}

	if _, err := s.detectors.get(s.defaultKey); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases every detector the server created.
func (s *Server) Close() error {
	return s.detectors.close()
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.SetupRoutes(r)
	return r
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(r chi.Router) {
	r.Use(chimw.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.corsOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         86400,
	}))
	r.Use(metricsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Get("/families", s.familiesHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.detectWebSocketHandler)

	r.Group(func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(chimw.Timeout(s.timeout))
		}
		r.Post("/detect", s.detectHandler)
		r.Post("/detect/overlay", s.overlayHandler)
	})
}
