package handler

import (
	"net/http"

	"github.com/msomdec/travelupa/internal/domain"
	"github.com/msomdec/travelupa/internal/service"
)

// Services bundles what the HTTP layer depends on.
type Services struct {
	Auth          *service.AuthService
	Pipeline      *service.UploadPipeline
	Destinations  *service.DestinationService
	Sync          *service.CatalogSync
	Gallery       *service.GalleryService
	UploadLimiter *service.TokenBucket // optional
	Blobs         domain.BlobReader    // optional; set when blobs are served by this process
	Health        []Pinger
	CookieSecure  bool
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, s Services) {
	protect := func(h http.HandlerFunc) http.Handler { return RequireAuth(s.Auth, h) }

	mux.HandleFunc("GET /healthz", NewHealthHandler(s.Health...))

	authH := NewAuthHandler(s.Auth, s.CookieSecure)
	mux.HandleFunc("POST /api/auth/register", authH.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authH.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", authH.HandleLogout)
	mux.Handle("GET /api/auth/me", protect(authH.HandleMe))

	destH := NewDestinationHandler(s.Pipeline, s.Destinations, s.Sync)
	mux.Handle("GET /{$}", OptionalAuth(s.Auth, http.HandlerFunc(destH.HandleHome)))
	mux.HandleFunc("GET /destinations/stream", destH.HandleStream)
	mux.HandleFunc("GET /api/destinations", destH.HandleList)
	var create http.Handler = http.HandlerFunc(destH.HandleCreate)
	if s.UploadLimiter != nil {
		create = RateLimit(s.UploadLimiter, create)
	}
	mux.Handle("POST /api/destinations", RequireAuth(s.Auth, create))
	mux.Handle("DELETE /api/destinations/{id}", protect(destH.HandleDelete))

	if s.Blobs != nil {
		mux.HandleFunc("GET /blobs/{key...}", NewBlobHandler(s.Blobs).HandleServe)
	}

	galleryH := NewGalleryHandler(s.Gallery)
	mux.Handle("GET /gallery/stream", protect(galleryH.HandleStream))
	mux.Handle("GET /api/gallery", protect(galleryH.HandleList))
	mux.Handle("POST /api/gallery", protect(galleryH.HandleAdd))
	mux.Handle("POST /api/gallery/capture", protect(galleryH.HandleCapture))
	mux.Handle("DELETE /api/gallery/{name}", protect(galleryH.HandleDelete))
	mux.Handle("GET /api/gallery/{name}/thumbnail", protect(galleryH.HandleThumbnail))
}
