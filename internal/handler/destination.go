package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/msomdec/travelupa/internal/domain"
	"github.com/msomdec/travelupa/internal/service"
	"github.com/msomdec/travelupa/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

const maxUploadBody = 11 << 20 // image limit plus form overhead

// DestinationHandler serves the destination catalog.
type DestinationHandler struct {
	pipeline     *service.UploadPipeline
	destinations *service.DestinationService
	sync         *service.CatalogSync
}

// NewDestinationHandler creates a new DestinationHandler.
func NewDestinationHandler(pipeline *service.UploadPipeline, destinations *service.DestinationService, sync *service.CatalogSync) *DestinationHandler {
	return &DestinationHandler{pipeline: pipeline, destinations: destinations, sync: sync}
}

// HandleHome renders the home page with the current catalog.
// GET /
func (h *DestinationHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	records, err := h.destinations.List(r.Context())
	if err != nil {
		slog.Error("list destinations for home", "error", err)
		records = nil
	}

	displayName := ""
	if user := UserFromContext(r.Context()); user != nil {
		displayName = user.DisplayName
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.HomePage(displayName, records).Render(r.Context(), w); err != nil {
		slog.Error("render home", "error", err)
	}
}

// HandleList returns every destination.
// GET /api/destinations
// Response: {"destinations": [...]}
func (h *DestinationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.destinations.List(r.Context())
	if err != nil {
		writeServiceError(w, "list destinations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"destinations": toDestinationDTOs(records)})
}

// HandleCreate uploads the image and publishes a new destination.
// POST /api/destinations (multipart: name, description, image)
// Response: 201 {"destination": {...}}
func (h *DestinationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Image could not be read.")
		return
	}

	record, err := h.pipeline.Submit(r.Context(), domain.BytesImage(data), r.FormValue("name"), r.FormValue("description"))
	if err != nil {
		writeServiceError(w, "submit destination", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"destination": toDestinationDTO(record)})
}

// HandleDelete removes a destination by id.
// DELETE /api/destinations/{id}
func (h *DestinationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.destinations.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, "delete destination", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStream keeps the page's destination list current over SSE until the
// client goes away.
// GET /destinations/stream
func (h *DestinationHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	updates := make(chan []domain.DestinationRecord)

	sub, err := h.sync.Subscribe(func(records []domain.DestinationRecord) {
		select {
		case updates <- records:
		case <-ctx.Done():
		}
	})
	if err != nil {
		writeServiceError(w, "subscribe to catalog", err)
		return
	}
	defer sub.Cancel()

	sse := datastar.NewSSE(w, r)
	for {
		select {
		case <-ctx.Done():
			return
		case records := <-updates:
			if err := sse.PatchElementTempl(
				view.DestinationList(records),
				datastar.WithSelectorID(view.DestinationListID),
				datastar.WithModeInner(),
			); err != nil {
				slog.Debug("destination stream closed", "error", err)
				return
			}
		}
	}
}
