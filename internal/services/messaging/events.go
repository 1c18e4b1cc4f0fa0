package messaging

import (
	"time"

	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/models"
)

// Events turns classifications and detections into messages on their subjects.
// A nil publisher makes every method a no-op.
type Events struct {
	pub             models.MessagePublisher
	classifySubject string
	detectSubject   string
}

func NewEvents(pub models.MessagePublisher, classifySubject, detectSubject string) *Events {
	return &Events{
		pub:             pub,
		classifySubject: classifySubject,
		detectSubject:   detectSubject,
	}
}

func (e *Events) Enabled() bool {
	return e != nil && e.pub != nil
}

func (e *Events) Classification(c models.Classification) {
	if !e.Enabled() {
		return
	}
	event := models.ClassificationEvent{
		Category:    c.Category,
		Keyword:     c.Keyword,
		Matched:     c.Matched,
		InputLength: len(c.Input),
		Timestamp:   time.Now().UTC(),
	}
	if err := e.pub.Publish(e.classifySubject, event); err != nil {
		log.Warn().Err(err).Str("subject", e.classifySubject).Msg("Failed to publish classification event")
	}
}

// Detection publishes frames with at least one region and ignores the rest.
func (e *Events) Detection(frame *models.ProcessedFrame) {
	if !e.Enabled() || frame == nil || len(frame.Regions) == 0 {
		return
	}
	event := models.DetectionEvent{
		StreamID:  frame.StreamID,
		FrameID:   frame.FrameID,
		Source:    frame.Source,
		Width:     frame.Width,
		Height:    frame.Height,
		Regions:   frame.Regions,
		Timestamp: frame.Timestamp.UTC(),
	}
	if err := e.pub.Publish(e.detectSubject, event); err != nil {
		log.Warn().Err(err).Str("subject", e.detectSubject).Str("stream_id", frame.StreamID).Msg("Failed to publish detection event")
	}
}
