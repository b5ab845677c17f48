package scanflow

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"strings"

	"github.com/gen2brain/heic"
	xdraw "golang.org/x/image/draw"
)

const (
	// Files below this size are uploaded as-is.
	compressionThreshold = 500 * 1024
	// Neither output dimension exceeds this.
	maxDimension = 1920
	jpegQuality  = 85
)

// Compress re-encodes a large image as a downscaled JPEG to shrink upload
// and processing time for multi-megabyte camera photos. Files below 500 KB
// pass through unchanged. Compression is an optimization, never a hard
// requirement: on any decode or encode failure the original bytes and MIME
// type are returned.
func Compress(data []byte, mimeType string) ([]byte, string) {
	if len(data) < compressionThreshold {
		return data, mimeType
	}

	img, err := decodeImage(data, mimeType)
	if err != nil {
		return data, mimeType
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if longest > maxDimension {
		scale := float64(maxDimension) / float64(longest)
		width = int(float64(width) * scale)
		height = int(float64(height) * scale)
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return data, mimeType
	}
	return buf.Bytes(), "image/jpeg"
}

func decodeImage(data []byte, mimeType string) (image.Image, error) {
	if isHEICData(data) || isHEICMimeType(mimeType) {
		return heic.Decode(bytes.NewReader(data))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// isHEICData checks for the ftyp box brands HEIC containers start with.
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "image/heic" || mimeType == "image/heif"
}
