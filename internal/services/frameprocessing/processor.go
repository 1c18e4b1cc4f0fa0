package frameprocessing

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"waste-ninja-go/internal/helpers"
	"waste-ninja-go/internal/metrics"
	"waste-ninja-go/internal/models"
	"waste-ninja-go/internal/services/annotator"
	"waste-ninja-go/internal/services/messaging"
)

// Annotator draws boxes around detected regions on a copy of the frame.
type Annotator interface {
	AnnotateWithRegions(frame gocv.Mat) (gocv.Mat, []models.Region, error)
}

// FrameSink receives annotated frames for viewers.
type FrameSink interface {
	PublishFrame(frame *models.ProcessedFrame) error
}

// Result is one annotated frame. The caller owns Mat and must Close it.
type Result struct {
	Mat   gocv.Mat
	Frame *models.ProcessedFrame
}

// FrameProcessor runs every frame source through the annotator and fans the
// result out to metrics, detection events and publishers.
type FrameProcessor struct {
	annotator Annotator
	sink      FrameSink
	events    *messaging.Events
	metrics   *metrics.Metrics

	mu       sync.Mutex
	frameIDs map[string]int64
}

func NewFrameProcessor(a Annotator, sink FrameSink, events *messaging.Events, m *metrics.Metrics) *FrameProcessor {
	return &FrameProcessor{
		annotator: a,
		sink:      sink,
		events:    events,
		metrics:   m,
		frameIDs:  make(map[string]int64),
	}
}

func (fp *FrameProcessor) nextFrameID(streamID string) int64 {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.frameIDs[streamID]++
	return fp.frameIDs[streamID]
}

// ProcessFrame annotates frame without taking ownership of it. Uploaded stills
// are not published to stream viewers.
func (fp *FrameProcessor) ProcessFrame(streamID string, source models.FrameSource, frame gocv.Mat) (*Result, error) {
	start := time.Now()
	annotated, regions, err := fp.annotator.AnnotateWithRegions(frame)
	if err != nil {
		annotated.Close()
		if errors.Is(err, annotator.ErrInvalidFrame) && fp.metrics != nil {
			fp.metrics.ObserveInvalidFrame(source)
		}
		return nil, err
	}
	took := time.Since(start)
	if fp.metrics != nil {
		fp.metrics.ObserveAnnotation(source, len(regions), took)
	}

	processed := &models.ProcessedFrame{
		StreamID:  streamID,
		Data:      helpers.MatToBGRBytes(annotated),
		Width:     annotated.Cols(),
		Height:    annotated.Rows(),
		FrameID:   fp.nextFrameID(streamID),
		Timestamp: start,
		Source:    source,
		Regions:   regions,
	}

	log.Debug().
		Str("stream_id", streamID).
		Str("source", string(source)).
		Int64("frame_id", processed.FrameID).
		Int("regions", len(regions)).
		Dur("took", took).
		Msg("Frame annotated")

	fp.events.Detection(processed)

	if fp.sink != nil && source != models.FrameSourceUpload {
		if err := fp.sink.PublishFrame(processed); err != nil {
			log.Warn().Err(err).Str("stream_id", streamID).Msg("Failed to publish annotated frame")
		}
	}

	return &Result{Mat: annotated, Frame: processed}, nil
}

// ProcessJPEG decodes an encoded frame, annotates it and returns the annotated JPEG.
func (fp *FrameProcessor) ProcessJPEG(streamID string, source models.FrameSource, data []byte, quality int) ([]byte, *models.ProcessedFrame, error) {
	frame, err := helpers.DecodeJPEG(data)
	defer frame.Close()
	if err != nil {
		if fp.metrics != nil {
			fp.metrics.ObserveInvalidFrame(source)
		}
		return nil, nil, errors.Join(annotator.ErrInvalidFrame, err)
	}

	result, err := fp.ProcessFrame(streamID, source, frame)
	if err != nil {
		return nil, nil, err
	}
	defer result.Mat.Close()

	out, err := helpers.EncodeJPEG(result.Mat, quality)
	if err != nil {
		return nil, nil, err
	}
	return out, result.Frame, nil
}

// Forget drops per-stream counters once a stream ends.
func (fp *FrameProcessor) Forget(streamID string) {
	fp.mu.Lock()
	delete(fp.frameIDs, streamID)
	fp.mu.Unlock()
}
