package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scansheet/scansheet/internal/capture"
	"github.com/scansheet/scansheet/internal/scanning"
)

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// View is the screen the application is showing
type View string

const (
	ViewListing   View = "listing"
	ViewCapturing View = "capturing"
	ViewEditing   View = "editing"
)

// DraftView is the draft as presented on the edit screen
type DraftView struct {
	ID       string          `json:"id"`
	ImageURL capture.Payload `json:"imageUrl"`
	Fields
}

// State is a snapshot of the application state
type State struct {
	ActiveView   View       `json:"activeView"`
	IsProcessing bool       `json:"isProcessing"`
	Draft        *DraftView `json:"draft,omitempty"`
	Notice       string     `json:"notice,omitempty"`
}

// Service is the application state machine. It owns the active view, the
// single in-flight draft and the processing flag, and sequences
// capture -> extraction -> edit -> commit. All transitions are methods;
// nothing else mutates the state.
type Service struct {
	store       *Store
	scanner     scanning.Scanner
	camera      capture.Camera
	idGenerator IDGenerator
	timeSource  TimeSource

	mu         sync.Mutex
	view       View
	processing bool
	draft      *Draft
	stream     capture.Stream
	notice     string
}

// NewService creates a new Service with default ID generator and time source
func NewService(store *Store, scanner scanning.Scanner, camera capture.Camera) *Service {
	return NewServiceWithDeps(store, scanner, camera, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store *Store, scanner scanning.Scanner, camera capture.Camera, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		store:       store,
		scanner:     scanner,
		camera:      camera,
		idGenerator: idGen,
		timeSource:  timeSrc,
		view:        ViewListing,
	}
}

// State returns a snapshot of the current state
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ActiveView:   s.view,
		IsProcessing: s.processing,
		Notice:       s.notice,
	}
	if s.draft != nil {
		st.Draft = &DraftView{
			ID:       s.draft.ID,
			ImageURL: s.draft.ImageURL,
			Fields:   s.draft.Fields(s.timeSource.Now()),
		}
	}
	return st
}

// Summary returns the listing aggregate
func (s *Service) Summary() Summary {
	return s.store.Summary()
}

// OpenScanner moves to the capture screen and acquires the camera. Opening
// the scanner abandons any draft still on the edit screen.
func (s *Service) OpenScanner(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		s.notice = noticeBusy
		return ErrBusy
	}
	if s.view == ViewCapturing {
		return nil
	}

	s.draft = nil
	stream, err := s.camera.Open(ctx)
	if err != nil {
		slog.Warn("Camera unavailable", "error", err)
		s.view = ViewListing
		s.notice = noticeDeviceUnavailable
		return fmt.Errorf("opening scanner: %w", err)
	}

	s.stream = stream
	s.view = ViewCapturing
	return nil
}

// DeviceFailed handles a camera failure reported by the client after the
// scanner was opened, such as a denied permission prompt
func (s *Service) DeviceFailed(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view != ViewCapturing {
		return
	}
	slog.Warn("Camera failed", "error", cause)
	s.releaseStream()
	s.view = ViewListing
	s.notice = noticeDeviceUnavailable
}

// CancelCapture dismisses the capture screen. The camera is released before
// the view changes.
func (s *Service) CancelCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseStream()
	if s.view == ViewCapturing {
		s.view = ViewListing
	}
}

// Shutter takes a snapshot from the open camera and runs extraction on it.
// It returns once extraction has finished.
func (s *Service) Shutter(ctx context.Context) error {
	p, err := s.BeginShutter(ctx)
	if err != nil {
		return err
	}
	return p.Wait()
}

// BeginShutter takes a snapshot from the open camera, releases the camera
// and claims the processing slot. The returned Extraction runs the extraction.
func (s *Service) BeginShutter(ctx context.Context) (*Extraction, error) {
	s.mu.Lock()
	if s.view != ViewCapturing || s.stream == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: scanner is not open", ErrInvalidTransition)
	}
	stream := s.stream
	s.mu.Unlock()

	frame, snapErr := stream.Snapshot(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != stream {
		// Dismissed while waiting for the frame
		return nil, ErrCaptureCancelled
	}
	s.releaseStream()
	s.view = ViewListing
	if snapErr != nil {
		s.notice = noticeDeviceUnavailable
		return nil, fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, snapErr)
	}

	payload, err := capture.Encode(frame)
	if err != nil {
		s.notice = noticeDeviceUnavailable
		return nil, fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
	}
	return s.beginExtraction(ctx, payload)
}

// Upload validates and decodes an uploaded file, then runs extraction on
// it. It returns once extraction has finished.
func (s *Service) Upload(ctx context.Context, name, contentType string, r io.Reader) error {
	p, err := s.BeginUpload(ctx, name, contentType, r)
	if err != nil {
		return err
	}
	return p.Wait()
}

// BeginUpload validates and decodes an uploaded file and claims the
// processing slot. A rejected file leaves the state untouched apart from
// the notice.
func (s *Service) BeginUpload(ctx context.Context, name, contentType string, r io.Reader) (*Extraction, error) {
	s.mu.Lock()
	if s.processing {
		s.notice = noticeBusy
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.mu.Unlock()

	payload, err := capture.FromFile(name, contentType, r)
	if err != nil {
		s.mu.Lock()
		if errors.Is(err, capture.ErrInvalidFileType) {
			s.notice = noticeInvalidFileType
		} else {
			s.notice = noticeFileRead
		}
		s.mu.Unlock()
		slog.Warn("Rejected upload", "filename", name, "content_type", contentType, "error", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == ViewCapturing {
		s.releaseStream()
	}
	return s.beginExtraction(ctx, payload)
}

// Extraction is a captured image holding the processing slot until its
// extraction has run
type Extraction struct {
	service    *Service
	ctx        context.Context
	id         string
	payload    capture.Payload
	capturedAt time.Time
}

// beginExtraction claims the single processing slot; caller holds s.mu
func (s *Service) beginExtraction(ctx context.Context, payload capture.Payload) (*Extraction, error) {
	if s.processing {
		s.notice = noticeBusy
		return nil, ErrBusy
	}

	s.processing = true
	s.view = ViewListing
	s.draft = nil
	return &Extraction{
		service:    s,
		ctx:        context.WithoutCancel(ctx),
		id:         s.idGenerator.Generate(),
		payload:    payload,
		capturedAt: s.timeSource.Now(),
	}, nil
}

// Wait calls the extraction backend and applies its result. The call is
// detached from cancellation and its result is always applied, even if the
// user has moved on in the meantime. Wait must be called exactly once.
func (p *Extraction) Wait() error {
	s := p.service
	start := time.Now()

	data, mimeType, err := p.payload.Decode()
	var result *scanning.ReceiptData
	if err == nil {
		result, err = s.scanner.ScanReceipt(p.ctx, data, mimeType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false

	if err != nil {
		slog.Error("Failed to scan receipt",
			"id", p.id,
			"image_size", len(data),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		s.notice = noticeExtractionFailed
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	slog.Info("Receipt scanned", "id", p.id, "elapsed_ms", time.Since(start).Milliseconds())
	s.draft = NewDraft(p.id, p.payload, p.capturedAt, result)
	s.view = ViewEditing
	return nil
}

// Commit promotes the draft with the user's edits into a receipt, stores it
// at the head of the collection and returns to the listing. An invalid edit
// keeps the draft on the edit screen.
func (s *Service) Commit(edits Edits) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view != ViewEditing || s.draft == nil {
		return Receipt{}, fmt.Errorf("%w: no receipt to save", ErrInvalidTransition)
	}

	r, err := Promote(s.draft, edits, s.timeSource.Now())
	if err != nil {
		return Receipt{}, err
	}
	if err := s.store.Append(r); err != nil {
		return Receipt{}, fmt.Errorf("saving receipt: %w", err)
	}

	slog.Info("Receipt saved", "id", r.ID, "merchant", r.Merchant, "total", r.Total.String())
	s.draft = nil
	s.view = ViewListing
	return r, nil
}

// CancelEdit discards the draft without a trace
func (s *Service) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view != ViewEditing {
		return
	}
	s.draft = nil
	s.view = ViewListing
}

// Delete removes a receipt; unknown ids are ignored
func (s *Service) Delete(id string) {
	s.store.Remove(id)
}

// Receipt returns a stored receipt by id
func (s *Service) Receipt(id string) (Receipt, bool) {
	return s.store.Get(id)
}

// DismissNotice clears the user-visible notice
func (s *Service) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = ""
}

// Close releases the camera if the scanner is still open
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseStream()
}

// releaseStream stops the camera stream; caller holds s.mu
func (s *Service) releaseStream() {
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
}
