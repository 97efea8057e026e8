// Package capture turns camera frames and uploaded files into
// self-contained JPEG payloads.
package capture

import "errors"

var (
	// ErrDeviceUnavailable is returned when the camera cannot be acquired.
	ErrDeviceUnavailable = errors.New("camera unavailable")
	// ErrInvalidFileType is returned when an upload is not an image.
	ErrInvalidFileType = errors.New("not an image file")
	// ErrFileRead is returned when an upload cannot be read or decoded.
	ErrFileRead = errors.New("failed to read file")
	// ErrStreamStopped is returned by Snapshot once the stream was released.
	ErrStreamStopped = errors.New("camera stream stopped")
)
