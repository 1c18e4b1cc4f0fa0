package streamcapture

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/logging"
	"waste-ninja-go/internal/models"
	"waste-ninja-go/internal/services/frameprocessing"
)

const maxReconnectDelay = time.Minute

var errTooManyReadErrors = errors.New("too many consecutive read errors")

// Source yields BGR frames. *gocv.VideoCapture satisfies it.
type Source interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// OpenFunc opens a capture source from a device index or URL.
type OpenFunc func(source string) (Source, error)

// Processor annotates and publishes frames.
type Processor interface {
	ProcessFrame(streamID string, source models.FrameSource, frame gocv.Mat) (*frameprocessing.Result, error)
}

// Stats is a snapshot of the capture loop.
type Stats struct {
	StreamID      string    `json:"stream_id"`
	Source        string    `json:"source"`
	Running       bool      `json:"running"`
	Connected     bool      `json:"connected"`
	FramesRead    int64     `json:"frames_read"`
	ReadErrors    int64     `json:"read_errors"`
	Reconnects    int64     `json:"reconnects"`
	LastFrameTime time.Time `json:"last_frame_time,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// Service reads frames from a local camera or stream URL and pushes them through the processor.
type Service struct {
	cfg       *config.Config
	processor Processor
	open      OpenFunc
	logger    zerolog.Logger

	mu    sync.RWMutex
	stats Stats
}

func NewService(cfg *config.Config, processor Processor) *Service {
	logger := logging.WithStream(logging.NewServiceLogger(cfg, "streamcapture"), cfg.CameraStreamID)
	return &Service{
		cfg:       cfg,
		processor: processor,
		open:      OpenVideoCapture,
		logger:    logger,
		stats: Stats{
			StreamID: cfg.CameraStreamID,
			Source:   cfg.CameraSource,
		},
	}
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Service) update(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// Run captures until ctx is cancelled, reopening the source whenever it fails.
func (s *Service) Run(ctx context.Context) error {
	s.update(func(st *Stats) { st.Running = true })
	defer s.update(func(st *Stats) { st.Running = false; st.Connected = false })

	s.logger.Info().Str("source", s.cfg.CameraSource).Int("fps", s.cfg.CaptureFPS).Msg("Starting camera capture")

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		src, err := s.open(s.cfg.CameraSource)
		if err == nil {
			s.update(func(st *Stats) { st.Connected = true })
			frames, readErr := s.readLoop(ctx, src)
			src.Close()
			s.update(func(st *Stats) { st.Connected = false })
			if readErr == nil {
				return nil
			}
			if frames > 0 {
				attempt = 0
			}
			err = readErr
		}

		s.update(func(st *Stats) { st.LastError = err.Error() })
		delay := s.backoffDelay(attempt)
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("Camera capture interrupted")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		s.update(func(st *Stats) { st.Reconnects++ })
	}
}

// readLoop returns nil when ctx ends and an error when the source should be reopened.
func (s *Service) readLoop(ctx context.Context, src Source) (int64, error) {
	img := gocv.NewMat()
	defer img.Close()

	interval := time.Second / time.Duration(max(s.cfg.CaptureFPS, 1))
	maxErrors := max(s.cfg.MaxReadErrors, 1)
	consecutiveErrors := 0
	var frames int64
	next := time.Now()

	for {
		select {
		case <-ctx.Done():
			return frames, nil
		default:
		}

		if !src.Read(&img) || img.Empty() {
			consecutiveErrors++
			s.update(func(st *Stats) { st.ReadErrors++ })
			if consecutiveErrors >= maxErrors {
				return frames, fmt.Errorf("%w (%d)", errTooManyReadErrors, consecutiveErrors)
			}

			// Progressive delay based on error count
			delay := min(time.Duration(consecutiveErrors*50)*time.Millisecond, 2*time.Second)
			select {
			case <-ctx.Done():
				return frames, nil
			case <-time.After(delay):
			}
			continue
		}
		consecutiveErrors = 0
		frames++
		s.update(func(st *Stats) { st.FramesRead++; st.LastFrameTime = time.Now() })

		result, err := s.processor.ProcessFrame(s.cfg.CameraStreamID, models.FrameSourceCamera, img)
		if err != nil {
			s.logger.Debug().Err(err).Msg("Dropping frame")
		} else {
			result.Mat.Close()
		}

		// Pace to the configured rate without drifting.
		next = next.Add(interval)
		if wait := time.Until(next); wait > 0 {
			select {
			case <-ctx.Done():
				return frames, nil
			case <-time.After(wait):
			}
		} else {
			next = time.Now()
		}
	}
}

// backoffDelay grows from ReconnectInterval exponentially, capped, with ±20% jitter.
func (s *Service) backoffDelay(attempt int) time.Duration {
	base := s.cfg.ReconnectInterval
	if base <= 0 {
		base = time.Second
	}
	delay := base
	for i := 0; i < attempt && delay < maxReconnectDelay; i++ {
		delay *= 2
	}
	delay = min(delay, maxReconnectDelay)
	jitter := time.Duration(float64(delay) * 0.2 * (rand.Float64()*2 - 1))
	return delay + jitter
}

// OpenVideoCapture opens a webcam when source is a device index and a stream otherwise.
func OpenVideoCapture(source string) (Source, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if idx, convErr := strconv.Atoi(strings.TrimSpace(source)); convErr == nil {
		capture, err = gocv.OpenVideoCapture(idx)
	} else {
		if strings.HasPrefix(source, "rtsp://") {
			configureFFmpegOptions()
		}
		capture, err = gocv.OpenVideoCaptureWithAPI(source, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("capture %s is not opened", source)
	}

	// Minimal buffer keeps latency low.
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	return capture, nil
}

// configureFFmpegOptions sets low latency RTSP options for OpenCV's FFmpeg backend.
func configureFFmpegOptions() {
	opts := []string{
		"rtsp_transport;tcp",
		"max_delay;500000",
		"stimeout;5000000",
		"flags;low_delay",
		"fflags;nobuffer",
		"analyzeduration;500000",
	}
	os.Setenv("OPENCV_FFMPEG_CAPTURE_OPTIONS", strings.Join(opts, "|"))
}
