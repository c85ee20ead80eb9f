package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/mark-c-hall/swapi-characters/internal/config"
	"github.com/mark-c-hall/swapi-characters/internal/fanout"
	mw "github.com/mark-c-hall/swapi-characters/internal/middleware"
	"github.com/mark-c-hall/swapi-characters/internal/roster"
	"github.com/mark-c-hall/swapi-characters/internal/swapi"
)

type CastLister interface {
	Cast(ctx context.Context, filmID string) (*roster.Cast, error)
}

type Handler struct {
	roster  CastLister
	logger  *slog.Logger
	handler http.Handler
}

type charactersResponse struct {
	FilmID     string   `json:"film_id"`
	Title      string   `json:"title"`
	Characters []string `json:"characters"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(lister CastLister, gatherer prometheus.Gatherer, cfg config.ServerConfig, logger *slog.Logger) (*Handler, error) {
	h := &Handler{roster: lister, logger: logger}

	mux := http.NewServeMux()
	h.addRoutes(mux, gatherer)

	var wrapped http.Handler = mux
	wrapped = mw.Timeout(cfg.RequestTimeout)(wrapped)
	wrapped = mw.RateLimit(rate.Limit(cfg.RateLimitPerSec), cfg.RateBurst, logger)(wrapped)
	wrapped = mw.Recovery(logger)(wrapped)
	wrapped = mw.Logging(logger)(wrapped)
	wrapped = mw.CORS(cfg.CORSOrigin)(wrapped)
	wrapped = otelhttp.NewHandler(wrapped, "swapi-characters")

	h.handler = wrapped
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) addRoutes(mux *http.ServeMux, gatherer prometheus.Gatherer) {
	mux.HandleFunc("GET /films/{id}/characters", h.filmCharacters)
	mux.HandleFunc("GET /healthz", h.healthz)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

func (h *Handler) filmCharacters(w http.ResponseWriter, r *http.Request) {
	filmID, err := config.ParseFilmID(r.PathValue("id"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cast, err := h.roster.Cast(r.Context(), filmID)
	if err != nil {
		status := statusFor(r.Context(), err)
		h.logger.WarnContext(r.Context(), "cast lookup failed",
			"film_id", filmID,
			"status", status,
			"error", err,
			"request_id", r.Context().Value(mw.RequestIDKey),
		)
		h.writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}

	h.writeJSON(w, http.StatusOK, charactersResponse{
		FilmID:     cast.Film.ID,
		Title:      cast.Film.Title,
		Characters: cast.Names(),
	})
}

// statusFor maps pipeline failures onto gateway semantics: an unknown film is
// reported as such, anything else the upstream did wrong is a bad gateway.
func statusFor(ctx context.Context, err error) int {
	if ctx.Err() != nil {
		return http.StatusGatewayTimeout
	}

	var fanErr *fanout.Error
	if errors.As(err, &fanErr) {
		return http.StatusBadGateway
	}

	var statusErr *swapi.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte("ok\n")); err != nil {
		h.logger.WarnContext(r.Context(), "error writing health response", "error", err)
	}
}

// writeJSON commits the status before encoding, so an encode failure can
// only be logged.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("error encoding response", "status", status, "error", err)
	}
}
