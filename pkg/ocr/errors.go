package ocr

import "errors"

// ErrNoAmount means OCR ran but no plausible amount was found in the image.
var ErrNoAmount = errors.New("no amount found")
