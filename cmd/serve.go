package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/msomdec/travelupa/internal/handler"
	"github.com/msomdec/travelupa/internal/localfs"
	"github.com/msomdec/travelupa/internal/service"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Starts the Travelupa web interface and JSON API.

Storage backends, secrets and upload limits are read from the environment
(or a .env file). The --port flag overrides PORT.`,
		Example: `  # Start server on the configured port
  travelupa serve

  # Start server on a custom port
  travelupa serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			ctx := cmd.Context()

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			files, err := localfs.New(cfg.LocalImageDir)
			if err != nil {
				return err
			}
			blobs, blobReader, err := openBlobs(ctx, cfg, st.db)
			if err != nil {
				return err
			}
			slog.Info("storage ready", "blobs", cfg.BlobBackend, "catalog", cfg.CatalogBackend, "images", files.Dir())

			index := st.db.LocalImages(files)
			limiter := service.NewTokenBucket(cfg.UploadRate, cfg.UploadBurst)
			defer limiter.Stop()

			mux := http.NewServeMux()
			handler.RegisterRoutes(mux, handler.Services{
				Auth: service.NewAuthService(st.db.Users(), cfg.JWTSecret, cfg.BcryptCost),
				Pipeline: service.NewUploadPipeline(blobs, st.catalog, files, index,
					service.WithTimeout(cfg.UploadTimeout),
					service.WithOrphanCleanup(cfg.OrphanBlobCleanup),
				),
				Destinations:  service.NewDestinationService(st.catalog, index),
				Sync:          service.NewCatalogSync(st.catalog),
				Gallery:       service.NewGalleryService(files, index),
				UploadLimiter: limiter,
				Blobs:         blobReader,
				Health:        st.pingers,
				CookieSecure:  cfg.CookieSecure,
			})

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           handler.SecurityHeaders(handler.LogRequests(mux)),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       120 * time.Second,
				MaxHeaderBytes:    1 << 20, // 1MB
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("server starting", "addr", srv.Addr, "url", cfg.PublicBaseURL)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				slog.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					slog.Error("server shutdown error", "error", err)
					return err
				}
				slog.Info("server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from PORT or 8080)")

	return cmd
}
