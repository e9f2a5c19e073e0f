package photo

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xCC
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeReencodesAsJPEG(t *testing.T) {
	out, ctype, err := Normalize(encodePNG(t, 64, 48))
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", ctype)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 64, img.Bounds().Dx())
	require.Equal(t, 48, img.Bounds().Dy())
}

func TestNormalizeDownscalesLargeImages(t *testing.T) {
	out, _, err := Normalize(encodePNG(t, 3200, 1600))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.LessOrEqual(t, img.Bounds().Dx(), maxEdge)
	require.LessOrEqual(t, img.Bounds().Dy(), maxEdge)
}

func TestNormalizeRejectsNonImages(t *testing.T) {
	_, _, err := Normalize([]byte("definitely not an image"))
	require.Error(t, err)
}
