// Package remote exposes the playback engine over HTTP and a websocket.
package remote

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/playback"
)

// DefaultAddr is the listen address without a config entry.
const DefaultAddr = "127.0.0.1:8737"

const shutdownTimeout = 5 * time.Second

// Server is the remote control surface.
type Server struct {
	service  playback.Service
	router   *mux.Router
	upgrader websocket.Upgrader
}

// New creates a server for service and registers its routes.
func New(service playback.Service) *Server {
	s := &Server{
		service: service,
		router:  mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     sameHost,
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/metadata", s.handleMetadata).Methods(http.MethodGet)
	api.HandleFunc("/queue", s.handleQueue).Methods(http.MethodGet)
	api.HandleFunc("/queue", s.handleEnqueue).Methods(http.MethodPost)
	api.HandleFunc("/queue", s.handleClearQueue).Methods(http.MethodDelete)
	api.HandleFunc("/queue/undo", s.handleUndo).Methods(http.MethodPost)
	api.HandleFunc("/queue/redo", s.handleRedo).Methods(http.MethodPost)
	api.HandleFunc("/library", s.handleLibrary).Methods(http.MethodGet)
	api.HandleFunc("/library/{id}", s.handleRemove).Methods(http.MethodDelete)
	api.HandleFunc("/library/{id}", s.handleRetag).Methods(http.MethodPatch)

	api.HandleFunc("/play", s.handlePlay).Methods(http.MethodPost)
	api.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/toggle", s.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/next", s.handleNext).Methods(http.MethodPost)
	api.HandleFunc("/previous", s.handlePrevious).Methods(http.MethodPost)
	api.HandleFunc("/seek", s.handleSeek).Methods(http.MethodPost)
	api.HandleFunc("/volume", s.handleVolume).Methods(http.MethodPost)
	api.HandleFunc("/shuffle", s.handleShuffle).Methods(http.MethodPost)
	api.HandleFunc("/repeat", s.handleRepeat).Methods(http.MethodPost)
	api.HandleFunc("/select", s.handleSelect).Methods(http.MethodPost)

	api.HandleFunc("/eq", s.handleEQ).Methods(http.MethodGet)
	api.HandleFunc("/eq/bands/{index}", s.handleBand).Methods(http.MethodPut)
	api.HandleFunc("/eq/q", s.handleQ).Methods(http.MethodPut)
	api.HandleFunc("/spectrum", s.handleSpectrum).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", s.handleWS)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("remote control listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// sameHost accepts websocket upgrades from pages served by the same host
// and from clients that send no Origin.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
	}
	return u.Hostname() == host
}
