// Package http implements the HTTP server exposing the comment service and
// the metrics of the client.
//
// Documentation Last Review: 18.08.2026
//
package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	canvass "go.canvass.io/canvass"
	"golang.org/x/xerrors"
)

type key int

const (
	requestIDKey key = 0
)

const shutdownTimeout = 10 * time.Second

// HTTP is an HTTP server with request logging and tracing.
type HTTP struct {
	sync.Mutex

	mux        *http.ServeMux
	server     *http.Server
	logger     zerolog.Logger
	listenAddr string
	ln         net.Listener
}

// NewHTTP creates a new server listening on the address once started. An
// empty address means a random free port.
func NewHTTP(listenAddr string) *HTTP {
	logger := canvass.Logger.With().Str("role", "http proxy").Logger()

	nextRequestID := func() string {
		return xid.New().String()
	}

	h := &HTTP{
		mux:        http.NewServeMux(),
		logger:     logger,
		listenAddr: listenAddr,
	}

	h.server = &http.Server{
		Handler:           tracing(nextRequestID)(h.logging(h.mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return h
}

// Listen starts the server. It blocks until the server is stopped, and
// returns an error if it cannot listen on the address.
func (h *HTTP) Listen() error {
	ln, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		return xerrors.Errorf("failed to create conn '%s': %v", h.listenAddr, err)
	}

	h.Lock()
	h.ln = ln
	h.Unlock()

	h.logger.Info().Msgf("Server is ready to handle requests at http://%s", ln.Addr())

	err = h.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return xerrors.Errorf("failed to serve: %v", err)
	}

	h.logger.Info().Msg("Server stopped")

	return nil
}

// GetAddr returns the address the server listens on, or nil if it is not
// listening yet.
func (h *HTTP) GetAddr() net.Addr {
	h.Lock()
	defer h.Unlock()

	if h.ln == nil {
		return nil
	}

	return h.ln.Addr()
}

// Stop gracefully shuts the server down.
func (h *HTTP) Stop() error {
	h.logger.Info().Msg("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	h.server.SetKeepAlivesEnabled(false)

	err := h.server.Shutdown(ctx)
	if err != nil {
		return xerrors.Errorf("could not gracefully shutdown the server: %v", err)
	}

	return nil
}

// RegisterHandler registers a handler for the pattern.
func (h *HTTP) RegisterHandler(pattern string, handler func(http.ResponseWriter,
	*http.Request)) {

	h.mux.HandleFunc(pattern, handler)
}

// RegisterMetrics registers the collectors in a dedicated registry and serves
// them on the path. A collector that fails to register is logged and skipped.
func (h *HTTP) RegisterMetrics(path string, collectors ...prometheus.Collector) {
	registry := prometheus.NewRegistry()

	for _, c := range collectors {
		err := registry.Register(c)
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to register collector")
		}
	}

	h.mux.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// logging logs every request once it is served.
func (h *HTTP) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			requestID, ok := r.Context().Value(requestIDKey).(string)
			if !ok {
				requestID = "unknown"
			}

			h.logger.Info().Str("requestID", requestID).
				Str("method", r.Method).
				Str("url", r.URL.Path).
				Str("remoteAddr", r.RemoteAddr).
				Str("agent", r.UserAgent()).Msg("")
		}()

		next.ServeHTTP(w, r)
	})
}

// tracing sets the request identifier to the X-Request-Id header, or a new
// one if it is missing.
func tracing(nextRequestID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-Id")
			if requestID == "" {
				requestID = nextRequestID()
			}

			ctx := context.WithValue(r.Context(), requestIDKey, requestID)
			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID returns the identifier of the request, or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
