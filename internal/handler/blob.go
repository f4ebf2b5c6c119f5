package handler

import (
	"net/http"
	"strconv"

	"github.com/msomdec/travelupa/internal/domain"
)

// BlobHandler serves blobs kept by a store that holds their bytes itself.
type BlobHandler struct {
	blobs domain.BlobReader
}

// NewBlobHandler creates a new BlobHandler.
func NewBlobHandler(blobs domain.BlobReader) *BlobHandler {
	return &BlobHandler{blobs: blobs}
}

// HandleServe writes the blob stored under the wildcard key.
// GET /blobs/{key...}
func (h *BlobHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.blobs.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		writeServiceError(w, "serve blob", err)
		return
	}

	// Keys are never reused, so the bytes behind a URL never change.
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
