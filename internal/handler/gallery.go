package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/travelupa/internal/service"
	"github.com/msomdec/travelupa/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

const defaultThumbnailSize = 256

// GalleryHandler manages the locally cached images.
type GalleryHandler struct {
	gallery *service.GalleryService
}

// NewGalleryHandler creates a new GalleryHandler.
func NewGalleryHandler(gallery *service.GalleryService) *GalleryHandler {
	return &GalleryHandler{gallery: gallery}
}

// HandleList returns every cached image, newest first.
// GET /api/gallery
func (h *GalleryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	images, err := h.gallery.List(r.Context())
	if err != nil {
		writeServiceError(w, "list gallery", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": toLocalImageDTOs(images)})
}

// HandleAdd stores a picked image.
// POST /api/gallery (multipart: image)
func (h *GalleryHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form or image too large.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided.")
		return
	}
	defer file.Close()

	entity, err := h.gallery.Add(r.Context(), file)
	if err != nil {
		writeServiceError(w, "add gallery image", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"image": toLocalImageDTO(entity)})
}

// HandleCapture stores a raw camera frame as a JPEG.
// POST /api/gallery/capture (body: image bytes)
func (h *GalleryHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBody)
	entity, err := h.gallery.Capture(r.Context(), body)
	if err != nil {
		writeServiceError(w, "capture gallery image", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"image": toLocalImageDTO(entity)})
}

// HandleDelete removes a cached image and its file.
// DELETE /api/gallery/{name}
func (h *GalleryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.Delete(r.Context(), r.PathValue("name")); err != nil {
		writeServiceError(w, "delete gallery image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleThumbnail returns a JPEG thumbnail.
// GET /api/gallery/{name}/thumbnail?size=N
func (h *GalleryHandler) HandleThumbnail(w http.ResponseWriter, r *http.Request) {
	size := defaultThumbnailSize
	if v := r.URL.Query().Get("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "size must be a number.")
			return
		}
		size = parsed
	}

	data, err := h.gallery.Thumbnail(r.Context(), r.PathValue("name"), size)
	if err != nil {
		writeServiceError(w, "render thumbnail", err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// HandleStream keeps the page's gallery current over SSE until the client goes away.
// GET /gallery/stream
func (h *GalleryHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	updates := h.gallery.Watch(ctx)

	sse := datastar.NewSSE(w, r)
	for {
		select {
		case <-ctx.Done():
			return
		case images, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.PatchElementTempl(
				view.GalleryList(images),
				datastar.WithSelectorID(view.GalleryListID),
				datastar.WithModeInner(),
			); err != nil {
				slog.Debug("gallery stream closed", "error", err)
				return
			}
		}
	}
}
