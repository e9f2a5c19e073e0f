package ocr

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// ExtractAmount runs Tesseract over a receipt image and returns the most
// plausible turnover amount in whole NT$. Returns ErrNoAmount when the
// recognized text contains no usable digit group.
func ExtractAmount(data []byte) (int64, error) {
	prepped, err := preprocess(data)
	if err != nil {
		return 0, err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetImageFromBytes(prepped); err != nil {
		return 0, fmt.Errorf("set ocr image: %w", err)
	}
	_ = client.SetWhitelist("0123456789,.NT$元 ")
	text, err := client.Text()
	if err != nil {
		return 0, fmt.Errorf("ocr: %w", err)
	}
	if amt, ok := BestAmount(FindAmounts(text)); ok {
		return amt, nil
	}
	return 0, ErrNoAmount
}

// preprocess upscales small screenshots and flattens them to high-contrast
// grayscale so Tesseract sees clean digits.
func preprocess(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() < 1000 {
		img = imaging.Resize(img, 1400, 0, imaging.Lanczos)
	}
	out := imaging.AdjustContrast(imaging.Grayscale(img), 20)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
