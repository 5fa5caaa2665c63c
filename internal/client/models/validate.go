package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MaxImageBytes caps the encoded image payload.
const MaxImageBytes = 1 << 20

const imageDataPrefix = "data:image/"

var ErrValidation = errors.New("validation failed")

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	return nil
}

// ValidateURL accepts absolute URLs with a scheme and a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not a valid URL", ErrValidation, raw)
	}
	return nil
}

func (l Link) Validate() error {
	if err := required("name", l.Name); err != nil {
		return err
	}
	return ValidateURL(l.URL)
}

func (n Note) Validate() error {
	return required("name", n.Name)
}

func (t Todo) Validate() error {
	if err := required("title", t.Title); err != nil {
		return err
	}
	for i, task := range t.Tasks {
		if strings.TrimSpace(task.Text) == "" {
			return fmt.Errorf("%w: task %d has no text", ErrValidation, i)
		}
	}
	return nil
}

func (i Image) Validate() error {
	if err := required("title", i.Title); err != nil {
		return err
	}
	if err := required("imageData", i.ImageData); err != nil {
		return err
	}
	if !strings.HasPrefix(i.ImageData, imageDataPrefix) {
		return fmt.Errorf("%w: imageData must be an image data URL", ErrValidation)
	}
	if len(i.ImageData) > MaxImageBytes {
		return fmt.Errorf("%w: image is %d bytes, limit is %d", ErrValidation, len(i.ImageData), MaxImageBytes)
	}
	return nil
}
