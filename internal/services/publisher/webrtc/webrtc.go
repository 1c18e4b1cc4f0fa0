package webrtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/metrics"
	"waste-ninja-go/internal/models"
)

const publisherName = "webrtc"

// connectFunc establishes a running stream. Swapped out in tests.
type connectFunc func(ctx context.Context, streamID string) (*Stream, error)

type Publisher struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	client  *http.Client
	connect connectFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	streams  map[string]*Stream
	attempts map[string]*attempt
}

// attempt tracks a connection in flight or the last failure, so a dead
// MediaMTX is retried at most once per ReconnectInterval per stream.
type attempt struct {
	inFlight bool
	failedAt time.Time
}

type Stream struct {
	streamID string

	videoProcess *exec.Cmd
	videoIn      io.WriteCloser
	videoOut     io.ReadCloser
	pc           *webrtc.PeerConnection
	videoTrack   *webrtc.TrackLocalStaticSample
	whipResource string

	frameBuffer   chan *models.ProcessedFrame
	frameInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once

	frameCount    atomic.Int64
	droppedFrames atomic.Int64
}

func NewPublisher(cfg *config.Config, m *metrics.Metrics) (*Publisher, error) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		cfg:      cfg,
		metrics:  m,
		client:   &http.Client{Timeout: cfg.WHIPTimeout},
		ctx:      ctx,
		cancel:   cancel,
		streams:  make(map[string]*Stream),
		attempts: make(map[string]*attempt),
	}
	p.connect = p.createStream

	if n, err := kickSessions(p.client, cfg.MediaMTXAPIURL, func(path string) bool {
		return strings.HasPrefix(path, "live/")
	}); err != nil {
		log.Debug().Err(err).Msg("Skipped stale MediaMTX session cleanup")
	} else if n > 0 {
		log.Info().Int("sessions_cleaned", n).Msg("Cleaned up stale MediaMTX WebRTC sessions")
	}

	log.Info().
		Str("mediamtx_url", cfg.MediaMTXURL).
		Str("mediamtx_api_url", cfg.MediaMTXAPIURL).
		Msg("WebRTC Publisher initialized with MediaMTX")
	return p, nil
}

// PublishFrame never blocks: frames are dropped while a stream is connecting
// or when the encoder has not consumed the previous one.
func (p *Publisher) PublishFrame(frame *models.ProcessedFrame) error {
	p.mu.Lock()
	stream, ok := p.streams[frame.StreamID]
	if !ok {
		p.maybeConnectLocked(frame.StreamID)
	}
	p.mu.Unlock()

	if !ok {
		p.observeDrop()
		return nil
	}

	select {
	case stream.frameBuffer <- frame:
	default:
		stream.droppedFrames.Add(1)
		p.observeDrop()
	}
	return nil
}

func (p *Publisher) observeDrop() {
	if p.metrics != nil {
		p.metrics.ObserveDroppedFrame(publisherName)
	}
}

func (p *Publisher) maybeConnectLocked(streamID string) {
	if p.ctx.Err() != nil {
		return
	}
	a, ok := p.attempts[streamID]
	if ok && (a.inFlight || time.Since(a.failedAt) < p.cfg.ReconnectInterval) {
		return
	}
	if !ok {
		a = &attempt{}
		p.attempts[streamID] = a
	}
	a.inFlight = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		stream, err := p.connect(p.ctx, streamID)

		p.mu.Lock()
		a.inFlight = false
		if err != nil {
			a.failedAt = time.Now()
			p.mu.Unlock()
			log.Warn().Err(err).Str("stream_id", streamID).Msg("Failed to start WebRTC stream")
			return
		}
		// StopStream or Shutdown ran while connecting; nobody would stop this stream later.
		if p.ctx.Err() != nil || p.attempts[streamID] != a {
			p.mu.Unlock()
			log.Debug().Str("stream_id", streamID).Msg("WebRTC stream stopped while connecting")
			p.closeStream(stream)
			return
		}
		delete(p.attempts, streamID)
		p.streams[streamID] = stream
		p.mu.Unlock()
	}()
}

func (p *Publisher) createStream(ctx context.Context, streamID string) (*Stream, error) {
	whipURL := p.cfg.WHIPURL(streamID)

	if _, err := kickSessions(p.client, p.cfg.MediaMTXAPIURL, func(path string) bool {
		return path == "live/"+streamID
	}); err != nil {
		log.Debug().Err(err).Str("stream_id", streamID).Msg("Pre-publish cleanup failed; proceeding anyway")
	}

	var iceServers []webrtc.ICEServer
	for _, u := range p.cfg.WebRTCICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{u}})
	}
	pc, err := webrtc.NewAPI().NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create PeerConnection: %w", err)
	}

	stream := &Stream{
		streamID:    streamID,
		pc:          pc,
		frameBuffer: make(chan *models.ProcessedFrame, 1),
		stopCh:      make(chan struct{}),
	}
	fail := func(err error) (*Stream, error) {
		p.closeStream(stream)
		return nil, err
	}

	stream.videoTrack, err = webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", streamID)
	if err != nil {
		return fail(fmt.Errorf("failed to create video track: %w", err))
	}
	if _, err := pc.AddTrack(stream.videoTrack); err != nil {
		return fail(fmt.Errorf("failed to add video track: %w", err))
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create offer: %w", err))
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return fail(fmt.Errorf("failed to set local description: %w", err))
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	answer, resource, err := postOffer(ctx, p.client, whipURL, pc.LocalDescription().SDP)
	if err != nil {
		return fail(err)
	}
	stream.whipResource = resource
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return fail(fmt.Errorf("failed to set remote description: %w", err))
	}

	process := exec.Command("ffmpeg", encoderArgs(p.cfg)...)
	process.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if stream.videoIn, err = process.StdinPipe(); err != nil {
		return fail(fmt.Errorf("failed to create stdin pipe: %w", err))
	}
	if stream.videoOut, err = process.StdoutPipe(); err != nil {
		return fail(fmt.Errorf("failed to create stdout pipe: %w", err))
	}
	if err := process.Start(); err != nil {
		return fail(fmt.Errorf("failed to start FFmpeg WebRTC encoder: %w", err))
	}
	stream.videoProcess = process

	fps := p.cfg.PublishingFPS
	if fps <= 0 {
		fps = 15
	}
	stream.frameInterval = time.Second / time.Duration(fps)

	p.wg.Add(2)
	go p.pumpVideoFramesToEncoder(stream)
	go p.pumpEncodedVideoToTrack(stream)

	log.Info().
		Str("stream_id", streamID).
		Str("whip_publish_url", whipURL).
		Str("webrtc_view_url", p.cfg.WebRTCViewURL(streamID)).
		Int("target_fps", fps).
		Msg("WebRTC WHIP stream started")

	return stream, nil
}

func (p *Publisher) pumpVideoFramesToEncoder(stream *Stream) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("stream_id", stream.streamID).Msg("WebRTC encoder pump panic recovered")
		}
		p.removeStream(stream)
	}()

	width, height := outputSize(p.cfg)
	ticker := time.NewTicker(stream.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stream.stopCh:
			return
		case <-ticker.C:
			var frame *models.ProcessedFrame
			select {
			case frame = <-stream.frameBuffer:
			default:
				continue
			}

			data, err := scaleFrame(frame, width, height)
			if err != nil {
				log.Debug().Err(err).Str("stream_id", stream.streamID).Msg("Skipping frame")
				continue
			}
			if _, err := stream.videoIn.Write(data); err != nil {
				log.Error().Err(err).Str("stream_id", stream.streamID).Msg("Failed to write frame to WebRTC encoder")
				return
			}
			stream.frameCount.Add(1)
		}
	}
}

func (p *Publisher) pumpEncodedVideoToTrack(stream *Stream) {
	defer p.wg.Done()

	ivf, err := newIVFReader(stream.videoOut)
	if err != nil {
		log.Error().Err(err).Str("stream_id", stream.streamID).Msg("Encoder produced no IVF stream")
		return
	}
	for {
		frame, err := ivf.next()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				log.Debug().Err(err).Str("stream_id", stream.streamID).Msg("IVF reader stopped")
			}
			return
		}
		if err := stream.videoTrack.WriteSample(media.Sample{Data: frame, Duration: stream.frameInterval}); err != nil {
			log.Error().Err(err).Str("stream_id", stream.streamID).Msg("Failed to write sample to WebRTC track")
			return
		}
	}
}

// closeStream releases everything a stream holds. Safe on partially built streams.
func (p *Publisher) closeStream(stream *Stream) {
	stream.stopOnce.Do(func() {
		close(stream.stopCh)

		if stream.videoIn != nil {
			stream.videoIn.Close()
		}
		if stream.videoProcess != nil {
			_ = terminateProcess(stream.videoProcess)
		}
		if stream.pc != nil {
			_ = stream.pc.Close()
		}
		if err := deleteResource(p.client, stream.whipResource); err != nil {
			log.Warn().Err(err).Str("stream_id", stream.streamID).Msg("Failed to delete WHIP resource")
		}

		log.Info().
			Str("stream_id", stream.streamID).
			Int64("total_frames", stream.frameCount.Load()).
			Int64("dropped_frames", stream.droppedFrames.Load()).
			Msg("WebRTC stream stopped")
	})
}

func (p *Publisher) StopStream(streamID string) error {
	p.mu.Lock()
	stream, ok := p.streams[streamID]
	delete(p.streams, streamID)
	delete(p.attempts, streamID)
	p.mu.Unlock()

	if ok {
		p.closeStream(stream)
	}
	return nil
}

// removeStream drops stream from the map only if it is still the current one for its id.
func (p *Publisher) removeStream(stream *Stream) {
	p.mu.Lock()
	if current, ok := p.streams[stream.streamID]; ok && current == stream {
		delete(p.streams, stream.streamID)
	}
	p.mu.Unlock()
	p.closeStream(stream)
}

// Streams lists stream ids with an established WHIP session.
func (p *Publisher) Streams() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.streams))
	for id := range p.streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Publisher) Shutdown(ctx context.Context) error {
	log.Info().Msg("WebRTC Publisher shutting down")
	p.cancel()

	p.mu.Lock()
	streams := make([]*Stream, 0, len(p.streams))
	for _, s := range p.streams {
		streams = append(streams, s)
	}
	p.streams = make(map[string]*Stream)
	p.mu.Unlock()

	for _, s := range streams {
		p.closeStream(s)
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
