package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/score"
)

// SnapshotSource yields the latest encoded PNG of the world, nil before the first capture
type SnapshotSource interface {
	Latest() []byte
}

// RouterConfig holds the dependencies of the debug API
// Scores and Snapshots are optional, their routes answer 404 when nil
type RouterConfig struct {
	Metrics     *Service
	Scores      score.Store
	Snapshots   SnapshotSource
	RateLimiter *IPRateLimiter
	Log         zerolog.Logger
}

// NewRouter builds the HTTP handler without opening a listener
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	h := &handlers{cfg: cfg}
	r.Get("/health", h.health)
	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{}))
		r.Get("/status", h.status)
	}
	r.Get("/scores", h.scores)
	r.Get("/snapshot.png", h.snapshot)
	return r
}

type handlers struct {
	cfg RouterConfig
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, h.cfg.Metrics.Status())
}

func (h *handlers) scores(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Scores == nil {
		http.NotFound(w, r)
		return
	}
	n := score.DefaultSize
	if q := r.URL.Query().Get("n"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = v
	}
	entries, err := h.cfg.Scores.Top(r.Context(), n)
	if err != nil {
		h.cfg.Log.Error().Err(err).Msg("read scores")
		http.Error(w, "scores unavailable", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, entries)
}

func (h *handlers) snapshot(w http.ResponseWriter, r *http.Request) {
	var png []byte
	if h.cfg.Snapshots != nil {
		png = h.cfg.Snapshots.Latest()
	}
	if png == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (h *handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.cfg.Log.Error().Err(err).Msg("encode response")
	}
}

// Serve runs an HTTP server on addr until ctx is done
func Serve(ctx context.Context, addr string, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("debug api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrapf(err, "serve %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
