package photo

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// maxEdge caps the longest side of stored photos.
const maxEdge = 1600

const jpegQuality = 85

// Normalize decodes an uploaded image, applies its EXIF orientation,
// downscales anything larger than maxEdge and re-encodes it as JPEG.
// Content that is not a decodable image is rejected.
func Normalize(data []byte) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
