package handler

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/storage"
)

var uploadFolders = map[string]bool{"receipts": true, "products": true, "campaigns": true}

type UploadResponse struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

type UploadHandler struct {
	uploader storage.Uploader
	maxBytes int64
}

// NewUploadHandler serves image uploads. A nil uploader makes the endpoint
// answer 503.
func NewUploadHandler(uploader storage.Uploader, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploader: uploader, maxBytes: maxBytes}
}

func (h *UploadHandler) RegisterUserRoutes(router chi.Router) {
	router.Post("/uploads", h.handleUpload)
}

func (h *UploadHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		respondWithError(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read multipart file")
		respondWithError(w, http.StatusBadRequest, "Missing or oversized file field")
		return
	}
	defer file.Close()

	folder := r.FormValue("folder")
	if folder == "" {
		folder = "receipts"
	}
	if !uploadFolders[folder] {
		respondWithError(w, http.StatusBadRequest, "Invalid folder")
		return
	}

	data, contentType, err := storage.Image(file, h.maxBytes)
	if err != nil {
		respondWithServiceError(w, err, "Failed to read upload")
		return
	}

	name, err := uuid.NewV4()
	if err != nil {
		respondWithServiceError(w, err, "Failed to name upload")
		return
	}
	url, err := h.uploader.Upload(r.Context(), folder, name.String(), bytes.NewReader(data))
	if err != nil {
		respondWithServiceError(w, err, "Failed to store upload")
		return
	}
	respondWithJSON(w, http.StatusCreated, UploadResponse{URL: url, ContentType: contentType})
}
