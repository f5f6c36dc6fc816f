package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"

	"lexibot/internal/middleware"
)

type Handler struct {
	service       *Service
	maxUploadSize int64
}

func NewHandler(service *Service, maxUploadSizeMB int64) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSizeMB << 20}
}

// Upload accepts one or more files under the "file" form field and ingests
// each independently, returning a per-file status list. Unreadable or
// rejected files do not affect their siblings.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large or malformed upload", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "No file part", http.StatusBadRequest)
		return
	}

	docs := make([]Document, 0, len(files))
	// Extraction failures are tracked by position, not name: uploads may
	// legitimately repeat a filename.
	extractFailures := make([]string, len(files))

	for i, header := range files {
		filename := filepath.Base(header.Filename)

		f, err := header.Open()
		if err != nil {
			extractFailures[i] = "unable to read upload"
			continue
		}

		content, err := ExtractText(f, header.Size, filename)
		_ = f.Close()
		if err != nil {
			slog.WarnContext(r.Context(), "extraction failed", "filename", filename, "error", err)
			extractFailures[i] = err.Error()
			continue
		}

		docs = append(docs, Document{SourceID: filename, Text: content})
	}

	statuses := h.service.IngestAll(r.Context(), docs)

	// Splice extraction failures back in, keeping one entry per uploaded file.
	results := make([]Status, 0, len(files))
	next := 0
	for i, header := range files {
		if msg := extractFailures[i]; msg != "" {
			results = append(results, Status{Filename: filepath.Base(header.Filename), Status: StatusError, Message: msg})
			continue
		}
		results = append(results, statuses[next])
		next++
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": results}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
