package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

// Format is the encoding of the exported artifact.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat accepts png, jpg and jpeg; empty means png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Encode serializes img at maximum quality: lossless PNG, or JPEG at quality 100.
func Encode(img image.Image, f Format) ([]byte, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(100))
	case FormatPNG, "":
		err = imaging.Encode(&buf, img, imaging.PNG)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, errors.Join(ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// Sanitize replaces every non-alphanumeric character with an underscore.
func Sanitize(s string) string {
	return nonAlnum.ReplaceAllString(strings.TrimSpace(s), "_")
}

// Filename builds certificate-{templateType}-{key|name}.{ext}. The lookup key
// wins over the name; with neither the suffix is dropped.
func Filename(templateType, key, name string, f Format) string {
	parts := []string{"certificate", Sanitize(templateType)}
	if k := Sanitize(key); k != "" {
		parts = append(parts, k)
	} else if n := Sanitize(name); n != "" {
		parts = append(parts, n)
	}
	return strings.Join(parts, "-") + "." + f.Extension()
}
