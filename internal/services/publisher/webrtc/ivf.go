package webrtc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	ivfFileHeaderSize  = 32
	ivfFrameHeaderSize = 12
	maxIVFFrameSize    = 10 * 1024 * 1024
)

// ivfReader pulls VP8 frames out of ffmpeg's IVF output.
type ivfReader struct {
	r *bufio.Reader
}

func newIVFReader(r io.Reader) (*ivfReader, error) {
	br := bufio.NewReader(r)
	header := make([]byte, ivfFileHeaderSize)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("failed to read IVF header: %w", err)
	}
	if string(header[:4]) != "DKIF" {
		return nil, fmt.Errorf("invalid IVF signature %q", header[:4])
	}
	return &ivfReader{r: br}, nil
}

// next returns the payload of the following frame. Oversized or empty frames
// are skipped; io.EOF means the encoder exited.
func (ir *ivfReader) next() ([]byte, error) {
	fh := make([]byte, ivfFrameHeaderSize)
	for {
		if _, err := io.ReadFull(ir.r, fh); err != nil {
			return nil, err
		}
		size := binary.LittleEndian.Uint32(fh[0:4])
		if size == 0 {
			continue
		}
		if size > maxIVFFrameSize {
			if _, err := ir.r.Discard(int(size)); err != nil {
				return nil, err
			}
			continue
		}

		frame := make([]byte, int(size))
		if _, err := io.ReadFull(ir.r, frame); err != nil {
			return nil, fmt.Errorf("failed to read IVF frame payload: %w", err)
		}
		return frame, nil
	}
}
