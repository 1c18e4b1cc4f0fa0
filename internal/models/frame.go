package models

import (
	"image"
	"time"
)

// HSV is a color in OpenCV's 8-bit encoding (H 0-179, S and V 0-255).
type HSV struct {
	H uint8 `json:"h"`
	S uint8 `json:"s"`
	V uint8 `json:"v"`
}

// HSVRange is an inclusive per-channel threshold.
type HSVRange struct {
	Lower HSV `json:"lower"`
	Upper HSV `json:"upper"`
}

// Contains reports whether c falls inside the range on every channel.
func (r HSVRange) Contains(c HSV) bool {
	return c.H >= r.Lower.H && c.H <= r.Upper.H &&
		c.S >= r.Lower.S && c.S <= r.Upper.S &&
		c.V >= r.Lower.V && c.V <= r.Upper.V
}

// Region is an axis-aligned bounding box around one detected blob.
type Region struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Area   float64 `json:"area"` // enclosed contour area, not Width*Height
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// FrameSource identifies where a frame entered the service.
type FrameSource string

const (
	FrameSourceCamera  FrameSource = "camera"
	FrameSourceBrowser FrameSource = "browser"
	FrameSourceUpload  FrameSource = "upload"
)

// ProcessedFrame represents a frame after annotation, ready for publishers
type ProcessedFrame struct {
	StreamID  string
	Data      []byte // BGR24 pixels of the annotated frame
	Width     int
	Height    int
	FrameID   int64
	Timestamp time.Time
	Source    FrameSource
	Regions   []Region
}
