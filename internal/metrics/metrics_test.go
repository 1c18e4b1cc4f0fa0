package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"waste-ninja-go/internal/models"
)

func TestObserveClassification(t *testing.T) {
	m := New()

	m.ObserveClassification(models.Classification{Category: models.CategoryFood, Keyword: "peel", Matched: true})
	m.ObserveClassification(models.Classification{Category: models.CategoryFood, Keyword: "rice", Matched: true})
	m.ObserveClassification(models.Classification{Category: models.CategoryPaper})

	if got := testutil.ToFloat64(m.classifications.WithLabelValues("food", "true")); got != 2 {
		t.Errorf("food/true: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.classifications.WithLabelValues("paper", "false")); got != 1 {
		t.Errorf("paper/false: got %v, want 1", got)
	}
}

func TestObserveAnnotation(t *testing.T) {
	m := New()

	m.ObserveAnnotation(models.FrameSourceCamera, 2, 3*time.Millisecond)
	m.ObserveAnnotation(models.FrameSourceCamera, 0, time.Millisecond)
	m.ObserveInvalidFrame(models.FrameSourceUpload)
	m.ObserveDroppedFrame("webrtc")

	if got := testutil.ToFloat64(m.framesAnnotated.WithLabelValues("camera")); got != 2 {
		t.Errorf("frames annotated: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.invalidFrames.WithLabelValues("upload")); got != 1 {
		t.Errorf("invalid frames: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.droppedFrames.WithLabelValues("webrtc")); got != 1 {
		t.Errorf("dropped frames: got %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveClassification(models.Classification{Category: models.CategoryPlastic, Matched: true})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `wasteninja_classifications_total{category="plastic",matched="true"} 1`) {
		t.Errorf("classification counter missing from exposition:\n%s", body)
	}
}

func TestNewIsIndependent(t *testing.T) {
	// Two instances must not panic on duplicate registration.
	a, b := New(), New()
	a.ObserveInvalidFrame(models.FrameSourceBrowser)
	if got := testutil.ToFloat64(b.invalidFrames.WithLabelValues("browser")); got != 0 {
		t.Errorf("instances share state: got %v", got)
	}
}
