package publisher

import (
	"context"
	"net/http"
	"sort"

	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/metrics"
	"waste-ninja-go/internal/models"
	"waste-ninja-go/internal/services/publisher/mjpeg"
	"waste-ninja-go/internal/services/publisher/webrtc"
)

// StreamURLs tells a viewer where a stream can be watched.
type StreamURLs struct {
	StreamID   string `json:"stream_id"`
	MJPEG      string `json:"mjpeg_url"`
	WebRTC     string `json:"webrtc_url,omitempty"`
	WHIP       string `json:"whip_publish_url,omitempty"`
	Publishing bool   `json:"webrtc_publishing"`
}

type Service struct {
	cfg             *config.Config
	mjpegPublisher  *mjpeg.Publisher
	webrtcPublisher *webrtc.Publisher // nil unless WHIP_ENABLED
}

func NewService(cfg *config.Config, m *metrics.Metrics) (*Service, error) {
	mjpegPub, err := mjpeg.NewPublisher(cfg)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:            cfg,
		mjpegPublisher: mjpegPub,
	}

	if cfg.WHIPEnabled {
		webrtcPub, err := webrtc.NewPublisher(cfg, m)
		if err != nil {
			log.Warn().Err(err).Msg("WebRTC publisher disabled")
		} else {
			s.webrtcPublisher = webrtcPub
		}
	}

	return s, nil
}

func (s *Service) PublishFrame(frame *models.ProcessedFrame) error {
	if err := s.mjpegPublisher.PublishFrame(frame); err != nil {
		return err
	}
	if s.webrtcPublisher != nil {
		return s.webrtcPublisher.PublishFrame(frame)
	}
	return nil
}

// PublishJPEG feeds an already encoded frame to MJPEG viewers only.
func (s *Service) PublishJPEG(streamID string, jpeg []byte) {
	s.mjpegPublisher.PublishJPEG(streamID, jpeg)
}

func (s *Service) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request, streamID string) {
	s.mjpegPublisher.StreamMJPEGHTTP(w, r, streamID)
}

func (s *Service) LatestJPEG(streamID string) ([]byte, bool) {
	return s.mjpegPublisher.Latest(streamID)
}

// Streams lists every stream that has produced a frame.
func (s *Service) Streams() []string {
	ids := s.mjpegPublisher.Streams()
	if s.webrtcPublisher == nil {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	for _, id := range s.webrtcPublisher.Streams() {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Service) HasStream(streamID string) bool {
	for _, id := range s.Streams() {
		if id == streamID {
			return true
		}
	}
	return false
}

func (s *Service) StreamURLs(streamID string) StreamURLs {
	urls := StreamURLs{
		StreamID: streamID,
		MJPEG:    s.cfg.MJPEGURL(streamID),
	}
	if s.webrtcPublisher != nil {
		urls.WebRTC = s.cfg.WebRTCViewURL(streamID)
		urls.WHIP = s.cfg.WHIPURL(streamID)
		for _, id := range s.webrtcPublisher.Streams() {
			if id == streamID {
				urls.Publishing = true
				break
			}
		}
	}
	return urls
}

// StopStream tears down every publisher's state for streamID.
func (s *Service) StopStream(streamID string) error {
	s.mjpegPublisher.RemoveStream(streamID)
	if s.webrtcPublisher != nil {
		return s.webrtcPublisher.StopStream(streamID)
	}
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.mjpegPublisher.Shutdown()
	if s.webrtcPublisher != nil {
		return s.webrtcPublisher.Shutdown(ctx)
	}
	return nil
}
