package capture

import (
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxFileSize caps uploads; phone photos rarely exceed a few MB
const MaxFileSize = 50 << 20

// FromFile validates that an upload is an image and converts it into a
// JPEG payload. A declared non-image type is rejected before the body is
// read; an absent or generic type is resolved by sniffing the content.
func FromFile(name, contentType string, r io.Reader) (Payload, error) {
	declared := normalizeMimeType(contentType)
	if declared != "" && !isGenericType(declared) && !strings.HasPrefix(declared, "image/") {
		return "", fmt.Errorf("%w: %s is %s", ErrInvalidFileType, name, declared)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileRead, name, err)
	}
	if len(data) > MaxFileSize {
		return "", fmt.Errorf("%w: %s exceeds %d MB", ErrFileRead, name, MaxFileSize>>20)
	}

	mimeType := declared
	if mimeType == "" || isGenericType(mimeType) {
		mimeType = mimetype.Detect(data).String()
		if !strings.HasPrefix(mimeType, "image/") {
			return "", fmt.Errorf("%w: %s looks like %s", ErrInvalidFileType, name, mimeType)
		}
	}

	img, err := DecodeImage(data, mimeType)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileRead, name, err)
	}

	payload, err := Encode(img)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFileRead, name, err)
	}
	return payload, nil
}

func normalizeMimeType(contentType string) string {
	mimeType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func isGenericType(mimeType string) bool {
	return mimeType == "application/octet-stream" || mimeType == "binary/octet-stream"
}
