package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
	"github.com/MeKo-Tech/aprilgo/internal/family"
	"github.com/MeKo-Tech/aprilgo/internal/mempool"
	"github.com/MeKo-Tech/aprilgo/internal/output"
	"github.com/MeKo-Tech/aprilgo/internal/overlay"
	"github.com/MeKo-Tech/aprilgo/internal/plane"
	"github.com/MeKo-Tech/aprilgo/internal/utils"
	"github.com/MeKo-Tech/aprilgo/internal/version"
)

const formatJSON = "json"

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	v, _, _ := version.Info()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   v,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Detectors: s.detectors.keys(),
	})
}

// familiesHandler lists the compiled-in tag families.
func (s *Server) familiesHandler(w http.ResponseWriter, _ *http.Request) {
	all := family.All()
	infos := make([]FamilyInfo, len(all))
	for i, f := range all {
		infos[i] = FamilyInfo{
			Name:               f.Name,
			Bits:               f.Bits(),
			MinHammingDistance: f.MinHammingDistance,
			Codes:              f.CodeCount,
			MaxID:              f.MaxID(),
			Default:            f.Name == s.defaultKey.family,
		}
	}
	writeJSON(w, http.StatusOK, FamiliesResponse{Families: infos, Count: len(infos)})
}

// detectHandler accepts a multipart image upload (field "image") or a raw
// pixel buffer with width and height query parameters.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	in, err := s.readInput(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer in.release()
	key, err := s.requestKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.runDetect(key, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := r.FormValue("format")
	if format == "" || format == formatJSON {
		writeJSON(w, http.StatusOK, DetectResponse{RequestID: requestIDFrom(r.Context()), Result: res})
		return
	}
	if !output.IsSupported(format) {
		s.writeError(w, r, badRequest("invalid_format", fmt.Errorf("unsupported format %q", format)))
		return
	}
	body, err := output.Format([]*detector.Result{res}, format, 3)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = io.WriteString(w, body)
}

var contentTypes = map[string]string{
	"text": "text/plain; charset=utf-8",
	"csv":  "text/csv",
	"yaml": "application/yaml",
}

// overlayHandler runs detection and returns the annotated image as PNG.
// Raw buffers are drawn on their luminance plane.
func (s *Server) overlayHandler(w http.ResponseWriter, r *http.Request) {
	if !s.overlayEnabled {
		s.writeError(w, r, &requestError{status: http.StatusForbidden, kind: "overlay_disabled", err: errors.New("overlay output disabled")})
		return
	}

	in, err := s.readInput(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer in.release()
	key, err := s.requestKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runDetect(key, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	img := in.img
	if img == nil {
		p, err := plane.Resolve(in.buf, in.width, in.height)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		img = &image.Gray{Pix: p.Data, Stride: p.Width, Rect: image.Rect(0, 0, p.Width, p.Height)}
	}

	ov := overlay.Render(img, res.Detections, s.overlayOptions)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Tag-Count", strconv.Itoa(len(res.Detections)))
	if err := overlay.Encode(w, ov); err != nil {
		slog.Error("Failed to encode overlay", "error", err)
	}
}

// input is one decoded request image. img is nil for raw buffers.
type input struct {
	source string
	kind   string
	buf    []byte
	width  int
	height int
	img    image.Image
	pooled bool
}

// release hands a pooled body buffer back once the request is done with it.
func (in *input) release() {
	if in.pooled {
		mempool.PutBytes(in.buf)
		in.buf, in.pooled = nil, false
	}
}

func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (*input, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readUpload(r, limit)
	}
	return readRaw(r, limit)
}

func readUpload(r *http.Request, limit int64) (*input, error) {
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, bodyError(err, "failed to parse form data")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, badRequest("missing_image", errors.New("no image file provided"))
	}
	defer func() { _ = file.Close() }()

	uploadSizeBytes.Observe(float64(header.Size))

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		return nil, badRequest("invalid_image", err)
	}
	buf, width, height := utils.PackImage(img)
	return &input{source: header.Filename, kind: "upload", buf: buf, width: width, height: height, img: img}, nil
}

func readRaw(r *http.Request, limit int64) (*input, error) {
	q := r.URL.Query()
	width, werr := strconv.Atoi(q.Get("width"))
	height, herr := strconv.Atoi(q.Get("height"))
	if werr != nil || herr != nil {
		return nil, badRequest("invalid_argument",
			errors.New("raw buffers need integer width and height query parameters"))
	}

	in := &input{kind: "raw", width: width, height: height}
	if n := r.ContentLength; n > 0 && n <= limit {
		in.buf, in.pooled = mempool.GetBytes(int(n)), true
		if _, err := io.ReadFull(r.Body, in.buf); err != nil {
			in.release()
			return nil, bodyError(err, "failed to read body")
		}
	} else {
		buf, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, bodyError(err, "failed to read body")
		}
		in.buf = buf
	}
	uploadSizeBytes.Observe(float64(len(in.buf)))
	return in, nil
}

// requestKey reads the family and black_border form/query values, falling
// back to the server defaults.
func (s *Server) requestKey(r *http.Request) (detectorKey, error) {
	key := s.defaultKey
	if f := normalizeFamily(r.FormValue("family")); f != "" {
		key.family = f
	}
	if b := strings.TrimSpace(r.FormValue("black_border")); b != "" {
		n, err := strconv.Atoi(b)
		if err != nil {
			return key, fmt.Errorf("%w: black_border %q is not an integer", detector.ErrInvalidConfig, b)
		}
		key.blackBorder = n
	}
	return key, nil
}

// normalizeFamily folds width variants and case and accepts an optional
// "tag" prefix, so "Tag36H11" and fullwidth digits resolve to "36h11".
func normalizeFamily(s string) string {
	s = strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
	return strings.TrimPrefix(s, "tag")
}

func (s *Server) runDetect(key detectorKey, in *input) (*detector.Result, error) {
	ld, err := s.detectors.get(key)
	if err != nil {
		detectRequestsTotal.WithLabelValues(in.kind, key.family, "error").Inc()
		return nil, err
	}

	res := &detector.Result{
		Source:      in.source,
		Family:      key.family,
		BlackBorder: key.blackBorder,
		Width:       in.width,
		Height:      in.height,
	}
	if layout, err := plane.Classify(len(in.buf), in.width, in.height); err == nil {
		res.Layout = layout.String()
	}

	start := time.Now()
	dets, err := ld.detect(in.buf, in.width, in.height)
	elapsed := time.Since(start)
	if err != nil {
		detectRequestsTotal.WithLabelValues(in.kind, key.family, "error").Inc()
		return nil, err
	}

	detectRequestsTotal.WithLabelValues(in.kind, key.family, "success").Inc()
	detectDuration.WithLabelValues(key.family).Observe(elapsed.Seconds())
	tagsDetected.WithLabelValues(key.family).Observe(float64(len(dets)))

	res.Detections = dets
	res.DurationMs = float64(elapsed.Microseconds()) / 1000
	return res, nil
}

// requestError carries an HTTP status for failures found while parsing.
type requestError struct {
	status int
	kind   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(kind string, err error) error {
	return &requestError{status: http.StatusBadRequest, kind: kind, err: err}
}

func bodyError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{status: http.StatusRequestEntityTooLarge, kind: "too_large", err: errors.New("file too large")}
	}
	return badRequest("invalid_body", fmt.Errorf("%s: %w", msg, err))
}

// classify maps an error to an HTTP status and a stable kind string.
func classify(err error) (int, string) {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return re.status, re.kind
	case errors.Is(err, family.ErrUnknownFamily):
		return http.StatusBadRequest, "unknown_family"
	case errors.Is(err, detector.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_config"
	case errors.Is(err, plane.ErrInvalidBufferSize):
		return http.StatusBadRequest, "invalid_buffer_size"
	case errors.Is(err, detector.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, detector.ErrNoEngine), errors.Is(err, detector.ErrClosed), errors.Is(err, errServerClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, detector.ErrEngine):
		return http.StatusInternalServerError, "engine_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
	} else {
		slog.Debug("Request rejected", "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind, RequestID: requestIDFrom(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
