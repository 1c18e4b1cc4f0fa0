// Package annotator finds regions of a target hue in BGR frames and outlines them.
package annotator

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/models"
)

// ErrInvalidFrame is returned for empty frames and frames that are not 8-bit, 3-channel BGR.
var ErrInvalidFrame = errors.New("invalid frame")

// Settings controls what counts as a region and how it is drawn.
type Settings struct {
	Range           models.HSVRange
	MinArea         float64 // regions with contour area <= MinArea are noise
	StrokeColor     color.RGBA
	StrokeThickness int
}

// DefaultSettings targets blue objects larger than 500px² and outlines them in blue.
func DefaultSettings() Settings {
	return Settings{
		Range: models.HSVRange{
			Lower: models.HSV{H: 100, S: 150, V: 50},
			Upper: models.HSV{H: 140, S: 255, V: 255},
		},
		MinArea:         500,
		StrokeColor:     color.RGBA{R: 0, G: 0, B: 255, A: 0},
		StrokeThickness: 2,
	}
}

// SettingsFromConfig builds Settings from the DETECT_* values.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	if err := cfg.Validate(); err != nil {
		return Settings{}, err
	}
	stroke, err := ParseStrokeColor(cfg.StrokeColor)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Range: models.HSVRange{
			Lower: models.HSV{H: uint8(cfg.HSVLower[0]), S: uint8(cfg.HSVLower[1]), V: uint8(cfg.HSVLower[2])},
			Upper: models.HSV{H: uint8(cfg.HSVUpper[0]), S: uint8(cfg.HSVUpper[1]), V: uint8(cfg.HSVUpper[2])},
		},
		MinArea:         cfg.MinRegionArea,
		StrokeColor:     stroke,
		StrokeThickness: cfg.StrokeThickness,
	}, nil
}

// ParseStrokeColor reads a "#RRGGBB" hex color.
func ParseStrokeColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid stroke color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0}, nil
}

// Service holds only immutable settings, so one instance can serve every stream concurrently.
type Service struct {
	settings Settings
}

func NewService(settings Settings) (*Service, error) {
	r := settings.Range
	// A range that does not contain its own lower corner is empty on some channel.
	if !r.Contains(r.Lower) {
		return nil, fmt.Errorf("hsv lower bound %v exceeds upper bound %v", r.Lower, r.Upper)
	}
	if r.Upper.H > 179 {
		return nil, fmt.Errorf("hue upper bound %d exceeds 179", r.Upper.H)
	}
	if settings.MinArea < 0 {
		return nil, fmt.Errorf("min area must not be negative, got %v", settings.MinArea)
	}
	if settings.StrokeThickness <= 0 {
		return nil, fmt.Errorf("stroke thickness must be positive, got %d", settings.StrokeThickness)
	}
	return &Service{settings: settings}, nil
}

// Settings returns the settings the service was built with.
func (s *Service) Settings() Settings {
	return s.settings
}

// Validate checks that frame is a non-empty 8-bit BGR image.
func Validate(frame gocv.Mat) error {
	if frame.Empty() || frame.Rows() <= 0 || frame.Cols() <= 0 {
		return fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: expected 8-bit 3-channel BGR, got type %v with %d channels", ErrInvalidFrame, frame.Type(), frame.Channels())
	}
	return nil
}

// Detect returns the bounding boxes of target-colored regions whose area exceeds MinArea.
// Only outermost boundaries are considered; holes inside a region are ignored.
func (s *Service) Detect(frame gocv.Mat) ([]models.Region, error) {
	if err := Validate(frame); err != nil {
		return nil, err
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	lo, hi := s.settings.Range.Lower, s.settings.Range.Upper
	lower := gocv.NewScalar(float64(lo.H), float64(lo.S), float64(lo.V), 0)
	upper := gocv.NewScalar(float64(hi.H), float64(hi.S), float64(hi.V), 0)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	regions := make([]models.Region, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= s.settings.MinArea {
			continue
		}
		rect := gocv.BoundingRect(contour)
		regions = append(regions, models.Region{
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
			Area:   area,
		})
	}
	return regions, nil
}

// Annotate returns a copy of frame with every detected region outlined.
// The caller owns the returned Mat and must Close it.
func (s *Service) Annotate(frame gocv.Mat) (gocv.Mat, error) {
	out, _, err := s.AnnotateWithRegions(frame)
	return out, err
}

// AnnotateWithRegions is Annotate that also reports the regions it drew.
func (s *Service) AnnotateWithRegions(frame gocv.Mat) (gocv.Mat, []models.Region, error) {
	regions, err := s.Detect(frame)
	if err != nil {
		return gocv.NewMat(), nil, err
	}

	out := frame.Clone()
	s.Draw(&out, regions)
	return out, regions, nil
}

// Draw outlines regions on mat in place.
func (s *Service) Draw(mat *gocv.Mat, regions []models.Region) {
	for _, r := range regions {
		gocv.RectangleWithParams(mat, r.Rect(), s.settings.StrokeColor, s.settings.StrokeThickness, gocv.Line8, 0)
	}
}
