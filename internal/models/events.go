package models

import "time"

// ClassificationEvent is published after every classification request.
type ClassificationEvent struct {
	Category    Category  `json:"category"`
	Keyword     string    `json:"keyword,omitempty"`
	Matched     bool      `json:"matched"`
	InputLength int       `json:"input_length"`
	Timestamp   time.Time `json:"timestamp"`
}

// DetectionEvent is published for frames where at least one region survived filtering.
type DetectionEvent struct {
	StreamID  string      `json:"stream_id"`
	FrameID   int64       `json:"frame_id"`
	Source    FrameSource `json:"source"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Regions   []Region    `json:"regions"`
	Timestamp time.Time   `json:"timestamp"`
}

// MessagePublisher interface for publishing events
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}
