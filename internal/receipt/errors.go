package receipt

import "errors"

var (
	// ErrBusy is returned when a capture is started while an extraction is outstanding
	ErrBusy = errors.New("a receipt is already being processed")
	// ErrInvalidTransition is returned when an event does not apply to the active view
	ErrInvalidTransition = errors.New("action not available in the current view")
	// ErrCaptureCancelled is returned when the scanner was dismissed before a frame arrived
	ErrCaptureCancelled = errors.New("capture cancelled")
	// ErrExtractionFailed is returned when the extraction backend errored or gave unusable content
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrInvalidDraft is returned when the edited draft cannot become a receipt
	ErrInvalidDraft = errors.New("invalid receipt")
	// ErrIncompleteRecord is returned for a receipt with missing or malformed fields
	ErrIncompleteRecord = errors.New("incomplete receipt")
	// ErrDuplicateID is returned when a receipt id is already in the store
	ErrDuplicateID = errors.New("duplicate receipt id")
	// ErrPersistenceDegraded marks storage failures; it is logged, never surfaced to users
	ErrPersistenceDegraded = errors.New("persistence degraded")
)

// User-visible notices
const (
	noticeDeviceUnavailable = "Unable to access the camera. Please check permissions."
	noticeInvalidFileType   = "Please upload an image file."
	noticeFileRead          = "Failed to read file."
	noticeExtractionFailed  = "Failed to read receipt. Please try again."
	noticeBusy              = "A receipt is already being analyzed."
)
