package webrtc

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/metrics"
	"waste-ninja-go/internal/models"
)

func ivfStream(frames ...[]byte) []byte {
	var buf bytes.Buffer
	header := make([]byte, ivfFileHeaderSize)
	copy(header, "DKIF")
	buf.Write(header)
	for i, f := range frames {
		fh := make([]byte, ivfFrameHeaderSize)
		binary.LittleEndian.PutUint32(fh[0:4], uint32(len(f)))
		binary.LittleEndian.PutUint64(fh[4:12], uint64(i))
		buf.Write(fh)
		buf.Write(f)
	}
	return buf.Bytes()
}

func TestIVFReader(t *testing.T) {
	data := ivfStream([]byte{1, 2, 3}, nil, []byte{4, 5})

	r, err := newIVFReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("newIVFReader: %v", err)
	}

	first, err := r.next()
	if err != nil || !bytes.Equal(first, []byte{1, 2, 3}) {
		t.Fatalf("first frame: got %v, %v", first, err)
	}
	// The empty frame is skipped.
	second, err := r.next()
	if err != nil || !bytes.Equal(second, []byte{4, 5}) {
		t.Fatalf("second frame: got %v, %v", second, err)
	}
	if _, err := r.next(); !errors.Is(err, io.EOF) {
		t.Errorf("end of stream: got %v, want io.EOF", err)
	}
}

func TestIVFReaderRejectsBadSignature(t *testing.T) {
	data := ivfStream()
	copy(data, "RIFF")
	if _, err := newIVFReader(bytes.NewReader(data)); err == nil {
		t.Fatal("expected signature error")
	}
	if _, err := newIVFReader(bytes.NewReader([]byte("DKIF"))); err == nil {
		t.Fatal("expected short header error")
	}
}

func TestPostOffer(t *testing.T) {
	whipBackoff = time.Millisecond
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.Header.Get("Content-Type") != "application/sdp" {
			t.Errorf("content type: got %q", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "v=0 offer" {
			t.Errorf("offer: got %q", body)
		}
		if n == 1 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.Header().Set("Location", "/live/cam/whip/session-1")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, "v=0 answer")
	}))
	defer srv.Close()

	answer, resource, err := postOffer(context.Background(), srv.Client(), srv.URL+"/live/cam/whip", "v=0 offer")
	if err != nil {
		t.Fatalf("postOffer: %v", err)
	}
	if answer != "v=0 answer" {
		t.Errorf("answer: got %q", answer)
	}
	if resource != srv.URL+"/live/cam/whip/session-1" {
		t.Errorf("resource: got %q", resource)
	}
	if calls.Load() != 2 {
		t.Errorf("attempts: got %d, want 2", calls.Load())
	}
}

func TestPostOfferFailures(t *testing.T) {
	whipBackoff = time.Millisecond

	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "unrecoverable", status: http.StatusBadRequest, wantCalls: 1},
		{name: "busy every time", status: http.StatusServiceUnavailable, wantCalls: whipMaxAttempts},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			if _, _, err := postOffer(context.Background(), srv.Client(), srv.URL, "offer"); err == nil {
				t.Fatal("expected error")
			}
			if calls.Load() != tc.wantCalls {
				t.Errorf("attempts: got %d, want %d", calls.Load(), tc.wantCalls)
			}
		})
	}
}

func TestAbsoluteResource(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"", ""},
		{"/live/cam/whip/abc", "http://mtx:8889/live/cam/whip/abc"},
		{"http://other:1/x", "http://other:1/x"},
	}
	for _, tc := range tests {
		if got := absoluteResource("http://mtx:8889/live/cam/whip", tc.location); got != tc.want {
			t.Errorf("absoluteResource(%q): got %q, want %q", tc.location, got, tc.want)
		}
	}
}

func TestKickSessions(t *testing.T) {
	var mu sync.Mutex
	var kicked []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v3/webrtcsessions/list":
			json.NewEncoder(w).Encode(mediaMTXSessionsList{Items: []mediaMTXSessionItem{
				{ID: "a", Path: "live/cam"},
				{ID: "b", Path: "live/other"},
				{ID: "c", Path: "recordings/cam"},
			}})
		case strings.HasPrefix(r.URL.Path, "/v3/webrtcsessions/kick/") && r.Method == http.MethodPost:
			mu.Lock()
			kicked = append(kicked, strings.TrimPrefix(r.URL.Path, "/v3/webrtcsessions/kick/"))
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	n, err := kickSessions(srv.Client(), srv.URL+"/", func(path string) bool { return strings.HasPrefix(path, "live/") })
	if err != nil {
		t.Fatalf("kickSessions: %v", err)
	}
	if n != 2 || len(kicked) != 2 || kicked[0] != "a" || kicked[1] != "b" {
		t.Errorf("kicked: got %d %v", n, kicked)
	}

	if n, err := kickSessions(srv.Client(), "", func(string) bool { return true }); n != 0 || err != nil {
		t.Errorf("disabled API: got %d, %v", n, err)
	}
}

func TestEncoderArgs(t *testing.T) {
	args := strings.Join(encoderArgs(&config.Config{OutputWidth: 320, OutputHeight: 240, PublishingFPS: 10, OutputBitrate: 500}), " ")
	for _, want := range []string{"-pix_fmt bgr24", "-s 320x240", "-r 10", "-c:v libvpx", "-b:v 500k", "-f ivf", "pipe:1"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}

func TestScaleFrame(t *testing.T) {
	frame := &models.ProcessedFrame{Data: bytes.Repeat([]byte{255, 0, 0}, 8*6), Width: 8, Height: 6}

	same, err := scaleFrame(frame, 8, 6)
	if err != nil || len(same) != len(frame.Data) {
		t.Fatalf("same size: got %d bytes, %v", len(same), err)
	}

	scaled, err := scaleFrame(frame, 4, 3)
	if err != nil {
		t.Fatalf("scaleFrame: %v", err)
	}
	if len(scaled) != 4*3*3 {
		t.Fatalf("scaled length: got %d, want %d", len(scaled), 4*3*3)
	}
	if scaled[0] != 255 || scaled[1] != 0 || scaled[2] != 0 {
		t.Errorf("scaled pixel: got %v", scaled[:3])
	}

	if _, err := scaleFrame(&models.ProcessedFrame{Data: []byte{1}, Width: 2, Height: 2}, 4, 3); err == nil {
		t.Error("expected size mismatch error")
	}
}

func newTestPublisher(t *testing.T, connect connectFunc) *Publisher {
	t.Helper()
	p, err := NewPublisher(&config.Config{ReconnectInterval: time.Hour, WHIPTimeout: time.Second}, metrics.New())
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	p.connect = connect
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishFrameConnectsThenBuffers(t *testing.T) {
	var connects atomic.Int32
	stream := &Stream{streamID: "cam", frameBuffer: make(chan *models.ProcessedFrame, 1), stopCh: make(chan struct{})}
	p := newTestPublisher(t, func(ctx context.Context, id string) (*Stream, error) {
		connects.Add(1)
		return stream, nil
	})

	// First frame starts the connection and is dropped.
	if err := p.PublishFrame(&models.ProcessedFrame{StreamID: "cam", FrameID: 1}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(p.Streams()) == 1 })

	p.PublishFrame(&models.ProcessedFrame{StreamID: "cam", FrameID: 2})
	p.PublishFrame(&models.ProcessedFrame{StreamID: "cam", FrameID: 3})

	got := <-stream.frameBuffer
	if got.FrameID != 2 {
		t.Errorf("buffered frame: got %d, want 2", got.FrameID)
	}
	if stream.droppedFrames.Load() != 1 {
		t.Errorf("dropped: got %d, want 1", stream.droppedFrames.Load())
	}
	if connects.Load() != 1 {
		t.Errorf("connects: got %d, want 1", connects.Load())
	}
}

func TestFailedConnectIsNotRetriedImmediately(t *testing.T) {
	var connects atomic.Int32
	p := newTestPublisher(t, func(ctx context.Context, id string) (*Stream, error) {
		connects.Add(1)
		return nil, errors.New("mediamtx down")
	})

	p.PublishFrame(&models.ProcessedFrame{StreamID: "cam"})
	waitFor(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		a, ok := p.attempts["cam"]
		return ok && !a.inFlight
	})

	for i := 0; i < 5; i++ {
		p.PublishFrame(&models.ProcessedFrame{StreamID: "cam"})
	}
	if connects.Load() != 1 {
		t.Errorf("connects: got %d, want 1", connects.Load())
	}
	if len(p.Streams()) != 0 {
		t.Errorf("streams: got %v", p.Streams())
	}
}

func TestStopStream(t *testing.T) {
	stream := &Stream{streamID: "cam", frameBuffer: make(chan *models.ProcessedFrame, 1), stopCh: make(chan struct{})}
	p := newTestPublisher(t, func(ctx context.Context, id string) (*Stream, error) { return stream, nil })

	p.PublishFrame(&models.ProcessedFrame{StreamID: "cam"})
	waitFor(t, func() bool { return len(p.Streams()) == 1 })

	if err := p.StopStream("cam"); err != nil {
		t.Fatal(err)
	}
	select {
	case <-stream.stopCh:
	default:
		t.Fatal("stream was not stopped")
	}
	if len(p.Streams()) != 0 {
		t.Errorf("streams after stop: got %v", p.Streams())
	}
	// Stopping twice is harmless.
	p.StopStream("cam")
}

func TestStopStreamWhileConnecting(t *testing.T) {
	stream := &Stream{streamID: "browser-x", frameBuffer: make(chan *models.ProcessedFrame, 1), stopCh: make(chan struct{})}
	started := make(chan struct{})
	release := make(chan struct{})
	p := newTestPublisher(t, func(ctx context.Context, id string) (*Stream, error) {
		close(started)
		<-release
		return stream, nil
	})

	p.PublishFrame(&models.ProcessedFrame{StreamID: "browser-x"})
	<-started

	if err := p.StopStream("browser-x"); err != nil {
		t.Fatal(err)
	}
	close(release)

	select {
	case <-stream.stopCh:
	case <-time.After(2 * time.Second):
		t.Fatal("stream finished connecting after StopStream and was left running")
	}
	if len(p.Streams()) != 0 {
		t.Errorf("streams: got %v", p.Streams())
	}
}
