package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/scansheet/scansheet/internal/capture"
	"github.com/scansheet/scansheet/internal/optional"
)

// maxFormSize bounds multipart parsing of uploads and shutter frames
const maxFormSize = int64(capture.MaxFileSize)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body with CORS headers set
func writeError(w http.ResponseWriter, code int, message string) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps state machine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, capture.ErrInvalidFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, capture.ErrFileRead), errors.Is(err, ErrInvalidDraft):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrBusy), errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrCaptureCancelled),
		errors.Is(err, ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, ErrExtractionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}

// handleState returns the current application state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.State())
}

// handleDismissNotice clears the user-visible notice
func (s *Server) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	s.service.DismissNotice()
	writeJSON(w, http.StatusOK, s.service.State())
}

// handleListReceipts returns the aggregate total, count and receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Summary())
}

// handleGetReceiptImage returns the decoded image of a receipt
func (s *Server) handleGetReceiptImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := s.service.Receipt(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Receipt not found")
		return
	}

	data, mimeType, err := rec.ImageURL.Decode()
	if err != nil {
		slog.Error("Error decoding receipt image", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Image unavailable")
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt; deleting an unknown id succeeds
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	s.service.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handleExport returns all receipts as an XLSX workbook
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := ExportXLSX(s.service.Summary().Receipts)
	if err != nil {
		slog.Error("Error exporting receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="scansheet.xlsx"`)
	w.Write(data)
}

// handleOpenScanner switches to the capture screen
func (s *Server) handleOpenScanner(w http.ResponseWriter, r *http.Request) {
	if err := s.service.OpenScanner(r.Context()); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.service.State())
}

// handleCancelScanner dismisses the capture screen
func (s *Server) handleCancelScanner(w http.ResponseWriter, r *http.Request) {
	s.service.CancelCapture()
	writeJSON(w, http.StatusOK, s.service.State())
}

// handleScannerFailure records a camera failure reported by the browser
func (s *Server) handleScannerFailure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		req.Error = "unknown camera error"
	}

	s.service.DeviceFailed(fmt.Errorf("%w: %s", capture.ErrDeviceUnavailable, req.Error))
	writeJSON(w, http.StatusOK, s.service.State())
}

// handleScannerFrame receives the shutter frame from the browser camera and
// starts extraction in the background. The client polls /api/state.
func (s *Server) handleScannerFrame(w http.ResponseWriter, r *http.Request) {
	if s.relay == nil {
		writeError(w, http.StatusServiceUnavailable, "Camera capture is not enabled")
		return
	}

	data, contentType, err := readImageBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	frame, err := capture.DecodeImage(data, contentType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable camera frame")
		return
	}
	if err := s.relay.Push(frame); err != nil {
		writeError(w, http.StatusConflict, "Scanner is not open")
		return
	}

	pending, err := s.service.BeginShutter(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	go s.finish(pending)

	writeJSON(w, http.StatusAccepted, s.service.State())
}

// handleUpload receives an uploaded receipt image and starts extraction in
// the background. Non-image files are rejected before any extraction.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			message = "File is too large. Maximum size is 50MB."
		}
		writeError(w, http.StatusBadRequest, message)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	pending, err := s.service.BeginUpload(r.Context(), header.Filename, header.Header.Get("Content-Type"), f)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	go s.finish(pending)

	writeJSON(w, http.StatusAccepted, s.service.State())
}

// finish runs a pending extraction; failures are reported through the state
func (s *Server) finish(p *Extraction) {
	if err := p.Wait(); err != nil {
		slog.Debug("Extraction finished with error", "error", err)
	}
}

// commitRequest carries the edit form; omitted fields keep the draft's values
type commitRequest struct {
	Merchant *string `json:"merchant"`
	Date     *string `json:"date"`
	Total    *Amount `json:"total"`
	Category *string `json:"category"`
}

func (c commitRequest) edits() Edits {
	var e Edits
	if c.Merchant != nil {
		e.Merchant = optional.Some(*c.Merchant)
	}
	if c.Date != nil {
		e.Date = optional.Some(strings.TrimSpace(*c.Date))
	}
	if c.Total != nil {
		e.Total = optional.Some(*c.Total)
	}
	if c.Category != nil {
		category, ok := ParseCategory(*c.Category)
		if !ok {
			// Let Promote reject it
			category = Category(*c.Category)
		}
		e.Category = optional.Some(category)
	}
	return e
}

// handleCommitDraft saves the edited draft as a receipt
func (s *Server) handleCommitDraft(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := s.service.Commit(req.edits())
	if err != nil {
		slog.Warn("Error saving receipt", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleCancelDraft discards the draft
func (s *Server) handleCancelDraft(w http.ResponseWriter, r *http.Request) {
	s.service.CancelEdit()
	writeJSON(w, http.StatusOK, s.service.State())
}

// readImageBody accepts either a multipart "file" field or a raw image body
func readImageBody(r *http.Request) ([]byte, string, error) {
	body := io.LimitReader(r.Body, maxFormSize+1)
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, "", fmt.Errorf("error parsing form")
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("no frame provided")
		}
		defer f.Close()
		body = io.LimitReader(f, maxFormSize+1)
		contentType = header.Header.Get("Content-Type")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("error reading frame")
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("no frame provided")
	}
	if int64(len(data)) > maxFormSize {
		return nil, "", fmt.Errorf("frame is too large")
	}
	return data, contentType, nil
}
