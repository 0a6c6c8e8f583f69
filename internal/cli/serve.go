package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	api "github.com/ashwinibhardwaj/sqlassist/pkg/adapters/http"
	"github.com/ashwinibhardwaj/sqlassist/pkg/observability"
)

const shutdownTimeout = 30 * time.Second

// NewHTTPHandler builds the API handler with request metrics and /metrics.
func NewHTTPHandler(app *App) http.Handler {
	httpMetrics := observability.NewHTTPMetrics(app.Registry)
	return api.NewHandler(app.Assistant,
		api.WithLogger(app.Logger),
		api.WithMaxUploadSize(app.Config.HTTP.MaxUploadSize),
		api.WithAllowedOrigins(app.Config.HTTP.AllowedOrigins...),
		api.WithMiddleware(httpMetrics.Middleware),
		api.WithMetricsHandler(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})),
	)
}

// Serve runs the HTTP API on ln until ctx is cancelled, then drains in-flight requests.
func Serve(ctx context.Context, app *App, ln net.Listener) error {
	srv := &http.Server{
		Handler:           NewHTTPHandler(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("http server listening", "addr", ln.Addr().String())
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		app.Logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		return nil
	}
}
