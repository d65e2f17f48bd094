package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"localdeck/internal/api"
	"localdeck/internal/config"
	"localdeck/internal/content"
	"localdeck/internal/fetch"
	"localdeck/internal/logging"
	"localdeck/internal/media"
	"localdeck/internal/registry"
	"localdeck/internal/resolve"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/play", srv.handlePlay)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/stop", srv.handleStop)
	mux.HandleFunc("/api/tracks", srv.handleTracks)
	mux.HandleFunc("/api/tracks/", srv.handleTrack)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// handlePlay is the trigger endpoint printed on cards. Its query contract
// is frozen: h is the card id, y an optional fallback source fragment.
func (s *apiServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	cardID := strings.TrimSpace(query.Get("h"))
	source := strings.TrimSpace(query.Get("y"))
	if cardID == "" {
		s.writeError(w, http.StatusBadRequest, "missing card id (h)")
		return
	}

	requestID := uuid.NewString()
	log := s.logger.With(
		logging.String(logging.FieldRequestID, requestID),
		logging.String(logging.FieldCardID, cardID),
	)

	resolution, err := s.daemon.engine.Resolve(r.Context(), cardID, source)
	if err != nil {
		status, message := classifyResolveError(err)
		log.Warn("resolution failed", logging.Int("status", status), logging.Error(err))
		s.writeError(w, status, message)
		return
	}

	if err := s.daemon.controller.Start(r.Context(), resolution.Ref); err != nil {
		log.Error("playback start failed",
			logging.String(logging.FieldContentRef, resolution.Ref),
			logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "playback failed")
		return
	}

	log.Info("card played",
		logging.String(logging.FieldContentRef, resolution.Ref),
		logging.Bool("fetched", resolution.Fetched))
	s.writeJSON(w, http.StatusOK, api.PlayResult{
		CardID:     resolution.CardID,
		ContentRef: resolution.Ref,
		Fetched:    resolution.Fetched,
	})
}

// classifyResolveError maps the resolution error taxonomy onto status
// codes. Distinct codes are part of the card contract: provisioning tools
// distinguish "print a fallback hint" from "source is gone" by status.
func classifyResolveError(err error) (int, string) {
	switch {
	case errors.Is(err, resolve.ErrUnknownCard):
		return http.StatusNotFound, "unknown card"
	case errors.Is(err, fetch.ErrUnsupportedSource):
		return http.StatusUnprocessableEntity, "unsupported source fragment"
	case errors.Is(err, fetch.ErrSourceUnavailable):
		return http.StatusBadGateway, "source unavailable"
	default:
		return http.StatusInternalServerError, "storage error"
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary, err := s.daemon.registry.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.Status{
		Deck:        api.FromDeckStatus(s.daemon.controller.Status()),
		Tracks:      summary.Total,
		Bound:       summary.Bound,
		NeverPlayed: summary.NeverPlayed,
	})
}

func (s *apiServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.daemon.controller.Stop()
	s.writeJSON(w, http.StatusOK, api.FromDeckStatus(s.daemon.controller.Status()))
}

func (s *apiServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tracks, err := s.listTracks(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTracks(tracks))
}

func (s *apiServer) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/tracks/")
	cardID, sub, _ := strings.Cut(rest, "/")
	if cardID == "" || (sub != "" && sub != "stream") {
		s.writeError(w, http.StatusNotFound, "track not found")
		return
	}

	track, err := s.daemon.registry.Lookup(r.Context(), cardID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if track == nil {
		s.writeError(w, http.StatusNotFound, "track not found")
		return
	}

	if sub == "stream" {
		s.streamTrack(w, r, track)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTrack(track))
}

func (s *apiServer) streamTrack(w http.ResponseWriter, r *http.Request, track *registry.Track) {
	if !track.HasContent() {
		s.writeError(w, http.StatusNotFound, "track has no content")
		return
	}
	file, entry, err := s.daemon.store.Open(track.ContentRef)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "content missing from store")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer file.Close()

	if track.Artist != "" {
		w.Header().Set("X-Track-Artist", track.Artist)
	}
	if track.Title != "" {
		w.Header().Set("X-Track-Title", track.Title)
	}
	w.Header().Set("Content-Type", media.MIMEForFormat(entry.Format))
	http.ServeContent(w, r, "", track.UpdatedAt, file)
}

func (s *apiServer) listTracks(ctx context.Context, query string) ([]*registry.Track, error) {
	if query == "" {
		return s.daemon.registry.List(ctx)
	}
	return s.daemon.registry.Find(ctx, query)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.Error{Error: message})
}
