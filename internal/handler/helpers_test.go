package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/msomdec/travelupa/internal/handler"
	"github.com/msomdec/travelupa/internal/localfs"
	"github.com/msomdec/travelupa/internal/repository/sqlite"
	"github.com/msomdec/travelupa/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

type testApp struct {
	srv    *httptest.Server
	db     *sqlite.DB
	auth   *service.AuthService
	files  *localfs.Store
	client *http.Client
}

func newTestAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	return newTestApp(t, nil).auth
}

// newTestApp wires the full stack on a temp SQLite database and image directory.
func newTestApp(t *testing.T, limiter *service.TokenBucket) *testApp {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	files, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	blobs := db.Blobs(srv.URL)
	index := db.LocalImages(files)
	catalog := db.Catalog()
	auth := service.NewAuthService(db.Users(), testJWTSecret, 4)
	destinations := service.NewDestinationService(catalog, index)

	handler.RegisterRoutes(mux, handler.Services{
		Auth:          auth,
		Pipeline:      service.NewUploadPipeline(blobs, catalog, files, index),
		Destinations:  destinations,
		Sync:          service.NewCatalogSync(catalog),
		Gallery:       service.NewGalleryService(files, index),
		UploadLimiter: limiter,
		Blobs:         blobs,
		Health:        []handler.Pinger{db.SqlDB.PingContext},
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &testApp{
		srv:    srv,
		db:     db,
		auth:   auth,
		files:  files,
		client: &http.Client{Jar: jar},
	}
}

// login registers a user and stores the auth cookie in the app's client.
func (a *testApp) login(t *testing.T) {
	t.Helper()
	resp := a.postJSON(t, "/api/auth/register", map[string]string{
		"email": "admin@travelupa.test", "displayName": "Admin",
		"password": "password123", "confirmPassword": "password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	resp = a.postJSON(t, "/api/auth/login", map[string]string{
		"email": "admin@travelupa.test", "password": "password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
}

func (a *testApp) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := a.client.Post(a.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (a *testApp) postMultipart(t *testing.T, path string, fields map[string]string, image []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(image)
	}
	mw.Close()

	resp, err := a.client.Post(a.srv.URL+path, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (a *testApp) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, r io.Reader, dst any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := range 30 {
		for x := range 40 {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 90, B: uint8(y * 8), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}
