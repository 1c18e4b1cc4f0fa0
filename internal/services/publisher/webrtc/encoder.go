package webrtc

import (
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/models"
)

// encoderArgs builds an ffmpeg command that reads raw BGR frames on stdin and
// writes realtime VP8 in an IVF container on stdout.
func encoderArgs(cfg *config.Config) []string {
	fps := cfg.PublishingFPS
	if fps <= 0 {
		fps = 15
	}
	width, height := outputSize(cfg)
	return []string{
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "libvpx",
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-lag-in-frames", "0",
		"-error-resilient", "1",
		"-g", strconv.Itoa(fps),
		"-b:v", fmt.Sprintf("%dk", cfg.OutputBitrate),
		"-f", "ivf",
		"-loglevel", "error",
		"pipe:1",
	}
}

func outputSize(cfg *config.Config) (int, int) {
	width, height := cfg.OutputWidth, cfg.OutputHeight
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return width, height
}

// scaleFrame returns BGR bytes at width x height, reusing the input when it already fits.
func scaleFrame(frame *models.ProcessedFrame, width, height int) ([]byte, error) {
	if len(frame.Data) != frame.Width*frame.Height*3 {
		return nil, fmt.Errorf("invalid frame data size: expected %d, got %d", frame.Width*frame.Height*3, len(frame.Data))
	}
	if frame.Width == width && frame.Height == height {
		return frame.Data, nil
	}

	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap frame: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	b := dst.ToBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// terminateProcess sends SIGTERM to the process group, waits briefly, then SIGKILLs if needed.
func terminateProcess(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-time.After(2 * time.Second):
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return nil
	case err := <-done:
		return err
	}
}
