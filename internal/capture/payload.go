package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
)

// jpegQuality matches the snapshot quality of the browser camera
const jpegQuality = 80

// Payload is a self-contained image as a data URI, e.g.
// "data:image/jpeg;base64,/9j/4AAQ...". It never references an external URL.
type Payload string

// Encode renders img as a JPEG payload
func Encode(img image.Image) (Payload, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encoding JPEG: %w", err)
	}
	return NewPayload("image/jpeg", buf.Bytes()), nil
}

// NewPayload wraps raw image bytes of the given MIME type
func NewPayload(mimeType string, data []byte) Payload {
	return Payload("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// Decode returns the raw bytes and MIME type held by the payload
func (p Payload) Decode() ([]byte, string, error) {
	rest, ok := strings.CutPrefix(string(p), "data:")
	if !ok {
		return nil, "", fmt.Errorf("payload is not a data URI")
	}
	header, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("payload has no data section")
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, "", fmt.Errorf("payload is not base64 encoded")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("payload is %q, not an image", mimeType)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("decoding base64: %w", err)
	}
	return data, mimeType, nil
}

// Valid reports whether the payload is a well-formed image data URI
func (p Payload) Valid() bool {
	_, _, err := p.Decode()
	return err == nil
}

func (p Payload) String() string {
	return string(p)
}
