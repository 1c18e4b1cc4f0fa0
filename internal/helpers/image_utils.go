package helpers

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

const (
	// Uploaded stills larger than this are downscaled before annotation.
	MaxImageWidth  = 1920
	MaxImageHeight = 1080

	// JPEG quality settings
	MediumQuality = 75
)

var ErrEmptyImage = errors.New("empty image data")

// IsJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// EncodeJPEG encodes a BGR Mat and returns a copy the caller owns.
func EncodeJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	if mat.Empty() {
		return nil, ErrEmptyImage
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// BGRToJPEG converts raw BGR24 pixels to JPEG.
func BGRToJPEG(bgrData []byte, width, height, quality int) ([]byte, error) {
	if len(bgrData) == 0 {
		return nil, ErrEmptyImage
	}
	if width <= 0 || height <= 0 || width*height*3 != len(bgrData) {
		return nil, fmt.Errorf("BGR length %d does not match %dx%d", len(bgrData), width, height)
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, bgrData)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from BGR data: %w", err)
	}
	defer mat.Close()

	return EncodeJPEG(mat, quality)
}

// DecodeJPEG decodes a JPEG (or any format OpenCV understands) into a BGR Mat.
// The caller closes the returned Mat.
func DecodeJPEG(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), ErrEmptyImage
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return mat, fmt.Errorf("failed to decode image: %w", err)
	}
	if mat.Empty() {
		return mat, fmt.Errorf("failed to decode image: %d bytes produced no pixels", len(data))
	}
	return mat, nil
}

// DecodeUpload reads a still image, applies its EXIF orientation and shrinks it
// to fit MaxImageWidth x MaxImageHeight.
func DecodeUpload(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmptyImage
	}
	if b.Dx() > MaxImageWidth || b.Dy() > MaxImageHeight {
		img = imaging.Fit(img, MaxImageWidth, MaxImageHeight, imaging.Lanczos)
	}
	return img, nil
}

// ImageToBGRMat converts any image.Image into an 8-bit three channel BGR Mat.
func ImageToBGRMat(img image.Image) (gocv.Mat, error) {
	// Normalise to NRGBA so paletted or gray inputs still yield three channels.
	mat, err := gocv.ImageToMatRGB(imaging.Clone(img))
	if err != nil {
		return mat, fmt.Errorf("failed to convert image to Mat: %w", err)
	}
	return mat, nil
}

// MatToBGRBytes copies the pixel buffer of a continuous CV8UC3 Mat.
func MatToBGRBytes(mat gocv.Mat) []byte {
	b := mat.ToBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
