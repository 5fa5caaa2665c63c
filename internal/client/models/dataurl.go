package models

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ImageDataURL sniffs data and returns it as a base64 data URL. Non-image
// content and results over MaxImageBytes are rejected.
func ImageDataURL(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: %s is not an image", ErrValidation, mt.String())
	}
	out := "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data)
	if len(out) > MaxImageBytes {
		return "", fmt.Errorf("%w: image is %d bytes encoded, limit is %d", ErrValidation, len(out), MaxImageBytes)
	}
	return out, nil
}
