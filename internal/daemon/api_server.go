package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vibetube/internal/api"
	"vibetube/internal/catalog"
	"vibetube/internal/logging"
	"vibetube/internal/services"
)

// APIServer serves the read-only HTTP API and the storage root.
type APIServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	server *http.Server
}

// NewAPIServer returns nil when bind is empty.
func NewAPIServer(d *Daemon, bind string, logger *slog.Logger) *APIServer {
	bind = strings.TrimSpace(bind)
	if d == nil || bind == "" {
		return nil
	}
	srv := &APIServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler returns the API routes.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/items", s.handleItems)
	mux.HandleFunc("GET /api/items/{id}", s.handleItem)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("GET /api/buckets", s.handleBuckets)
	mux.HandleFunc("GET /downloads/", s.handleDownloads)
	return mux
}

// Serve listens on the bind address until ctx is cancelled.
func (s *APIServer) Serve(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown incomplete",
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_shutdown_failed"),
		)
	}
	return nil
}

func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *APIServer) handleItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := catalog.ItemFilter{Status: strings.TrimSpace(query.Get("status"))}
	if value := strings.TrimSpace(query.Get("source")); value != "" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid source id")
			return
		}
		filter.SourceID = id
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	items, err := s.daemon.ListItems(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := api.FilterItems(api.FromItems(items), query.Get("q"))
	s.writeJSON(w, http.StatusOK, api.ItemListResponse{Items: dtos})
}

func (s *APIServer) handleItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	item, err := s.daemon.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "item not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromItem(item))
}

func (s *APIServer) handleSources(w http.ResponseWriter, r *http.Request) {
	list, err := s.daemon.ListSources(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.SourceListResponse{Sources: api.FromSources(list)})
}

func (s *APIServer) handleBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.daemon.ListBuckets(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromBuckets(buckets))
}

// handleDownloads serves files under the current storage root, which makes
// recorded thumbnail references resolvable.
func (s *APIServer) handleDownloads(w http.ResponseWriter, r *http.Request) {
	root, err := s.daemon.StorageRoot(r.Context())
	if err != nil || strings.TrimSpace(root) == "" {
		s.writeError(w, http.StatusServiceUnavailable, "storage root unavailable")
		return
	}
	http.StripPrefix("/downloads/", http.FileServer(http.Dir(root))).ServeHTTP(w, r)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
