// Package imageutil encodes images for multimodal messages.
package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/codex-mohan/autonix/state"
)

// Format is an image encoding.
type Format string

const (
	JPEG Format = "JPEG"
	PNG  Format = "PNG"
)

// DefaultJPEGQuality is used when encoding JPEG.
const DefaultJPEGQuality = 90

// MIMEType returns the media type of f, or "" for an unknown format.
func (f Format) MIMEType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	}
	return ""
}

// FormatFromMIME maps image/jpeg, image/jpg and image/png to a Format.
func FormatFromMIME(mime string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return JPEG, nil
	case "image/png":
		return PNG, nil
	}
	return "", fmt.Errorf("unsupported image type %q", mime)
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: DefaultJPEGQuality})
	case PNG:
		return png.Encode(w, img)
	}
	return fmt.Errorf("unsupported image format %q", f)
}

// EncodeBase64 encodes img in format f and returns standard base64.
func EncodeBase64(img image.Image, f Format) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DataURL encodes img as a data: URL.
func DataURL(img image.Image, f Format) (string, error) {
	encoded, err := EncodeBase64(img, f)
	if err != nil {
		return "", err
	}
	return "data:" + f.MIMEType() + ";base64," + encoded, nil
}

// ToMessageImage encodes img for attachment to a human message.
func ToMessageImage(img image.Image, f Format) (state.Image, error) {
	encoded, err := EncodeBase64(img, f)
	if err != nil {
		return state.Image{}, err
	}
	return state.Image{MIMEType: f.MIMEType(), Data: encoded}, nil
}

// Read decodes a JPEG or PNG from r and re-encodes it as a message image in
// the format it was read in.
func Read(r io.Reader) (state.Image, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		return state.Image{}, fmt.Errorf("failed to decode image: %w", err)
	}
	f, err := FormatFromMIME("image/" + name)
	if err != nil {
		return state.Image{}, err
	}
	return ToMessageImage(img, f)
}
