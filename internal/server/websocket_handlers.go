package server

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/aprilgo/internal/detector"
)

const (
	frameHeaderSize = 8
	wsReadTimeout   = 60 * time.Second
	wsPingInterval  = 30 * time.Second
	wsWriteTimeout  = 10 * time.Second
)

// WebSocket upgrader. Origins are enforced by the CORS setting.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocketConfig switches the family or border for subsequent frames.
type WebSocketConfig struct {
	Family      string `json:"family"`
	BlackBorder int    `json:"black_border"`
}

// WebSocketResponse is sent as a text message for every frame.
type WebSocketResponse struct {
	Type      string           `json:"type"` // "detections", "config", "error"
	RequestID string           `json:"request_id,omitempty"`
	Result    *detector.Result `json:"result,omitempty"`
	Config    *WebSocketConfig `json:"config,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// decodeFrame splits a binary frame into dimensions and pixels. The header is
// two little-endian uint32 values, width then height.
func decodeFrame(data []byte) (buf []byte, width, height int, err error) {
	if len(data) < frameHeaderSize {
		return nil, 0, 0, fmt.Errorf("%w: frame shorter than %d byte header", detector.ErrInvalidArgument, frameHeaderSize)
	}
	w := binary.LittleEndian.Uint32(data[0:4])
	h := binary.LittleEndian.Uint32(data[4:8])
	if w > 1<<16 || h > 1<<16 {
		return nil, 0, 0, fmt.Errorf("%w: frame dimensions %dx%d too large", detector.ErrInvalidArgument, w, h)
	}
	return data[frameHeaderSize:], int(w), int(h), nil
}

// EncodeFrame builds a binary frame for Detect over WebSocket.
func EncodeFrame(buf []byte, width, height int) []byte {
	out := make([]byte, frameHeaderSize+len(buf))
	binary.LittleEndian.PutUint32(out[0:4], uint32(width))  //nolint:gosec // G115: caller passes image dims
	binary.LittleEndian.PutUint32(out[4:8], uint32(height)) //nolint:gosec // G115: caller passes image dims
	copy(out[frameHeaderSize:], buf)
	return out
}

// detectWebSocketHandler streams detections for binary frames.
func (s *Server) detectWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	key, err := s.requestKey(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Fail before upgrading when the family or border is unusable.
	if _, err := s.detectors.get(key); err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr, "detector", key.String())
	s.handleWebSocketConnection(conn, key)
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func (s *Server) handleWebSocketConnection(raw *websocket.Conn, key detectorKey) {
	conn := &wsConn{Conn: raw}
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		websocketMessagesTotal.WithLabelValues("received").Inc()

		switch messageType {
		case websocket.BinaryMessage:
			s.handleWebSocketFrame(conn, key, data)
		case websocket.TextMessage:
			key = s.handleWebSocketConfig(conn, key, data)
		}
	}
}

func (s *Server) handleWebSocketFrame(conn WebSocketConnWriter, key detectorKey, data []byte) {
	requestID := uuid.NewString()
	buf, width, height, err := decodeFrame(data)
	if err != nil {
		s.sendWebSocketError(conn, requestID, err)
		return
	}

	res, err := s.runDetect(key, &input{kind: "websocket", buf: buf, width: width, height: height})
	if err != nil {
		s.sendWebSocketError(conn, requestID, err)
		return
	}
	s.sendWebSocketResponse(conn, WebSocketResponse{Type: "detections", RequestID: requestID, Result: res})
}

// handleWebSocketConfig applies a config message and returns the key to use
// from now on. The old key stays in effect when the new one is rejected.
func (s *Server) handleWebSocketConfig(conn WebSocketConnWriter, key detectorKey, data []byte) detectorKey {
	var cfg WebSocketConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.sendWebSocketError(conn, "", badRequest("invalid_request", fmt.Errorf("failed to parse config: %w", err)))
		return key
	}

	next := key
	if f := normalizeFamily(cfg.Family); f != "" {
		next.family = f
	}
	if cfg.BlackBorder != 0 {
		next.blackBorder = cfg.BlackBorder
	}
	if _, err := s.detectors.get(next); err != nil {
		s.sendWebSocketError(conn, "", err)
		return key
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:   "config",
		Config: &WebSocketConfig{Family: next.family, BlackBorder: next.blackBorder},
	})
	return next
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID string, err error) {
	_, kind := classify(err)
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      "error",
		RequestID: requestID,
		Error:     err.Error(),
		ErrorKind: kind,
	})
}
