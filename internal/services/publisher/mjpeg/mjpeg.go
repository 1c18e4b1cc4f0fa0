package mjpeg

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/helpers"
	"waste-ninja-go/internal/models"
)

const boundary = "frame"

type stream struct {
	latest    []byte
	updatedAt time.Time
	viewers   map[chan struct{}]struct{}
}

type Publisher struct {
	cfg       *config.Config
	keepalive time.Duration

	mu      sync.RWMutex
	streams map[string]*stream
}

func NewPublisher(cfg *config.Config) (*Publisher, error) {
	return &Publisher{
		cfg:       cfg,
		keepalive: 2 * time.Second,
		streams:   make(map[string]*stream),
	}, nil
}

func (p *Publisher) PublishFrame(frame *models.ProcessedFrame) error {
	jpeg, err := helpers.BGRToJPEG(frame.Data, frame.Width, frame.Height, p.cfg.OutputJPEGQuality)
	if err != nil {
		return fmt.Errorf("mjpeg %s: %w", frame.StreamID, err)
	}
	p.PublishJPEG(frame.StreamID, jpeg)
	return nil
}

// PublishJPEG stores an already encoded frame and wakes every viewer of the stream.
func (p *Publisher) PublishJPEG(streamID string, jpeg []byte) {
	p.mu.Lock()
	s := p.getOrCreate(streamID)
	s.latest = jpeg
	s.updatedAt = time.Now()
	for ch := range s.viewers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	p.mu.Unlock()
}

func (p *Publisher) getOrCreate(streamID string) *stream {
	s, ok := p.streams[streamID]
	if !ok {
		s = &stream{viewers: make(map[chan struct{}]struct{})}
		p.streams[streamID] = s
	}
	return s
}

func (p *Publisher) latest(streamID string) []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.streams[streamID]; ok {
		return s.latest
	}
	return nil
}

// Latest returns the most recent JPEG for streamID, if any.
func (p *Publisher) Latest(streamID string) ([]byte, bool) {
	b := p.latest(streamID)
	return b, len(b) > 0
}

// Streams lists stream ids that have received at least one frame.
func (p *Publisher) Streams() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.streams))
	for id, s := range p.streams {
		if len(s.latest) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// RemoveStream forgets the stream and disconnects its viewers.
func (p *Publisher) RemoveStream(streamID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.streams[streamID]; ok {
		for ch := range s.viewers {
			close(ch)
		}
		delete(p.streams, streamID)
	}
}

func (p *Publisher) subscribe(streamID string) chan struct{} {
	ch := make(chan struct{}, 1)
	p.mu.Lock()
	p.getOrCreate(streamID).viewers[ch] = struct{}{}
	p.mu.Unlock()
	return ch
}

func (p *Publisher) unsubscribe(streamID string, ch chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.streams[streamID]
	if !ok {
		return
	}
	if _, ok := s.viewers[ch]; ok {
		delete(s.viewers, ch)
		close(ch)
	}
	if len(s.viewers) == 0 && len(s.latest) == 0 {
		delete(p.streams, streamID)
	}
}

func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, streamID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	notify := p.subscribe(streamID)
	defer p.unsubscribe(streamID, notify)

	writePart := func(jpeg []byte) bool {
		if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(jpeg)); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first := p.latest(streamID)
	if len(first) == 0 {
		if placeholder, err := placeholderJPEG(streamID); err == nil {
			first = placeholder
		} else {
			log.Warn().Err(err).Str("stream_id", streamID).Msg("Failed to render MJPEG placeholder")
		}
	}
	if len(first) > 0 && !writePart(first) {
		return
	}

	keepaliveTicker := time.NewTicker(p.keepalive)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-notify:
			if !open {
				return
			}
			if buf := p.latest(streamID); len(buf) > 0 && !writePart(buf) {
				return
			}
		case <-keepaliveTicker.C:
			if buf := p.latest(streamID); len(buf) > 0 && !writePart(buf) {
				return
			}
		}
	}
}

func placeholderJPEG(streamID string) ([]byte, error) {
	placeholder := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(64, 64, 64, 0), 360, 640, gocv.MatTypeCV8UC3)
	defer placeholder.Close()

	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&placeholder, fmt.Sprintf("Stream: %s", streamID),
		image.Pt(20, 180), gocv.FontHersheySimplex, 1.0, textColor, 2)
	gocv.PutText(&placeholder, "Waiting for frames...",
		image.Pt(20, 220), gocv.FontHersheySimplex, 0.8, textColor, 2)

	return helpers.EncodeJPEG(placeholder, helpers.MediumQuality)
}

func (p *Publisher) Shutdown() {
	p.mu.Lock()
	for id, s := range p.streams {
		for ch := range s.viewers {
			close(ch)
		}
		delete(p.streams, id)
	}
	p.mu.Unlock()
	log.Info().Msg("MJPEG Publisher shutting down")
}
