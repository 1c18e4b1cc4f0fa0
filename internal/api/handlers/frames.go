package handlers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/helpers"
	"waste-ninja-go/internal/logging"
	"waste-ninja-go/internal/models"
	"waste-ninja-go/internal/services"
	"waste-ninja-go/internal/services/annotator"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	// The page is served from the same host, but kiosks often embed it elsewhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type FramesHandler struct {
	container *services.ServiceContainer
}

func NewFramesHandler(container *services.ServiceContainer) *FramesHandler {
	return &FramesHandler{container: container}
}

// FrameMessage is the JSON text message exchanged on the frame socket.
type FrameMessage struct {
	Type     string          `json:"type"` // hello, frame or error
	StreamID string          `json:"stream_id,omitempty"`
	MJPEGURL string          `json:"mjpeg_url,omitempty"`
	FrameID  int64           `json:"frame_id,omitempty"`
	Width    int             `json:"width,omitempty"`
	Height   int             `json:"height,omitempty"`
	Regions  []models.Region `json:"regions,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// frameConn serializes writes; gorilla allows one concurrent writer.
type frameConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (fc *frameConn) writeJSON(msg FrameMessage) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return fc.ws.WriteJSON(msg)
}

func (fc *frameConn) writeBinary(data []byte) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return fc.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (fc *frameConn) ping() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// Frames annotates webcam frames sent by the browser
// @Summary Browser frame socket
// @Description Websocket. Send binary JPEG frames; each is answered with the annotated JPEG (binary) followed by a JSON frame message listing the regions. The first message is a JSON hello carrying the stream id and its MJPEG URL.
// @Tags annotate
// @Success 101 {object} FrameMessage
// @Router /ws/frames [get]
func (h *FramesHandler) Frames(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logging.Warn(c).Err(err).Msg("Websocket upgrade failed")
		return
	}

	streamID := "browser-" + uuid.NewString()
	c.Set(logging.StreamIDKey, streamID)
	base := log.With().Str(logging.RequestIDKey, c.GetString(logging.RequestIDKey)).Logger()
	logger := logging.WithStream(base, streamID)

	conn := &frameConn{ws: ws}
	defer h.cleanup(conn, streamID, logger)

	ws.SetReadLimit(h.container.Config.MaxUploadBytes)
	ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	if err := conn.writeJSON(FrameMessage{
		Type:     "hello",
		StreamID: streamID,
		MJPEGURL: h.container.Config.MJPEGURL(streamID),
	}); err != nil {
		logger.Warn().Err(err).Msg("Failed to send hello")
		return
	}
	logger.Info().Msg("Browser frame stream opened")

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			}
		}
	}()

	quality := h.container.Config.OutputJPEGQuality
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Warn().Err(err).Msg("Browser frame stream read failed")
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(wsPongWait))

		if msgType != websocket.BinaryMessage || !helpers.IsJPEGData(data) {
			if err := conn.writeJSON(FrameMessage{Type: "error", Error: "expected binary JPEG frame"}); err != nil {
				return
			}
			continue
		}

		out, frame, err := h.container.Processor.ProcessJPEG(streamID, models.FrameSourceBrowser, data, quality)
		if err != nil {
			msg := "annotation failed"
			if errors.Is(err, annotator.ErrInvalidFrame) {
				msg = err.Error()
			} else {
				logger.Error().Err(err).Msg("Browser frame annotation failed")
			}
			if err := conn.writeJSON(FrameMessage{Type: "error", Error: msg}); err != nil {
				return
			}
			continue
		}

		if err := conn.writeBinary(out); err != nil {
			logger.Debug().Err(err).Msg("Failed to write annotated frame")
			return
		}
		if err := conn.writeJSON(FrameMessage{
			Type:     "frame",
			StreamID: streamID,
			FrameID:  frame.FrameID,
			Width:    frame.Width,
			Height:   frame.Height,
			Regions:  frame.Regions,
		}); err != nil {
			return
		}
	}
}

func (h *FramesHandler) cleanup(conn *frameConn, streamID string, logger zerolog.Logger) {
	conn.ws.Close()
	if err := h.container.Publisher.StopStream(streamID); err != nil {
		logger.Warn().Err(err).Msg("Failed to stop browser stream publishers")
	}
	h.container.Processor.Forget(streamID)
	logger.Info().Msg("Browser frame stream closed")
}

