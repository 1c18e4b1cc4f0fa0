package mjpeg

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/helpers"
	"waste-ninja-go/internal/models"
)

func newTestPublisher(t *testing.T) *Publisher {
	t.Helper()
	p, err := NewPublisher(&config.Config{OutputJPEGQuality: 80})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	return p
}

func readPart(t *testing.T, r *bufio.Reader) []byte {
	t.Helper()
	tp := textproto.NewReader(r)
	line, err := tp.ReadLine()
	if err != nil {
		t.Fatalf("reading boundary: %v", err)
	}
	if line != "--"+boundary {
		t.Fatalf("boundary: got %q", line)
	}
	header, err := tp.ReadMIMEHeader()
	if err != nil {
		t.Fatalf("reading part header: %v", err)
	}
	if ct := header.Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("part content type: got %q", ct)
	}
	n, err := strconv.Atoi(header.Get("Content-Length"))
	if err != nil {
		t.Fatalf("content length: %v", err)
	}
	body := make([]byte, n+2)
	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("reading part body: %v", err)
	}
	return body[:n]
}

func TestStreamPlaceholderThenFrames(t *testing.T) {
	p := newTestPublisher(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.StreamMJPEGHTTP(w, r, "cam")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("content type: got %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	if first := readPart(t, r); !helpers.IsJPEGData(first) {
		t.Fatal("placeholder is not a JPEG")
	}

	frame := []byte{0xFF, 0xD8, 1, 2, 3, 0xFF, 0xD9}
	p.PublishJPEG("cam", frame)

	if got := readPart(t, r); !bytes.Equal(got, frame) {
		t.Errorf("frame: got %v, want %v", got, frame)
	}
}

func TestRemoveStreamDisconnectsViewers(t *testing.T) {
	p := newTestPublisher(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.StreamMJPEGHTTP(w, r, "gone")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readPart(t, r)

	p.RemoveStream("gone")

	if _, err := io.ReadAll(r); err != nil {
		t.Errorf("stream should end cleanly, got %v", err)
	}
}

func TestPublishFrameEncodesBGR(t *testing.T) {
	p := newTestPublisher(t)
	const w, h = 32, 24

	err := p.PublishFrame(&models.ProcessedFrame{
		StreamID: "cam",
		Data:     bytes.Repeat([]byte{255, 0, 0}, w*h),
		Width:    w,
		Height:   h,
	})
	if err != nil {
		t.Fatalf("PublishFrame: %v", err)
	}

	jpeg, ok := p.Latest("cam")
	if !ok || !helpers.IsJPEGData(jpeg) {
		t.Fatal("latest frame is not a JPEG")
	}
	if got := p.Streams(); len(got) != 1 || got[0] != "cam" {
		t.Errorf("Streams: got %v", got)
	}
}

func TestPublishFrameRejectsBadData(t *testing.T) {
	p := newTestPublisher(t)

	err := p.PublishFrame(&models.ProcessedFrame{StreamID: "cam", Data: []byte{1, 2, 3}, Width: 10, Height: 10})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := p.Latest("cam"); ok {
		t.Error("bad frame must not be stored")
	}
}

func TestStreamsSortedAndRemovable(t *testing.T) {
	p := newTestPublisher(t)
	p.PublishJPEG("b", []byte{0xFF, 0xD8})
	p.PublishJPEG("a", []byte{0xFF, 0xD8})

	if got := p.Streams(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Streams: got %v", got)
	}

	p.RemoveStream("a")
	if got := p.Streams(); len(got) != 1 || got[0] != "b" {
		t.Errorf("after remove: got %v", got)
	}
}
