package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/PetoAdam/homenavi/forecast-service/internal/forecast"
	"github.com/PetoAdam/homenavi/forecast-service/internal/models"
	"github.com/PetoAdam/homenavi/forecast-service/internal/observability"
	"github.com/PetoAdam/homenavi/forecast-service/internal/realtime"
	"github.com/PetoAdam/homenavi/forecast-service/internal/session"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	querier  forecast.Querier
	opts     []forecast.Option
	sessions *session.Store
	hub      *realtime.Hub
	limit    func(http.Handler) http.Handler
}

// ControllerFactory builds session controllers that push every state change to
// the session's websocket subscribers.
func ControllerFactory(q forecast.Querier, hub *realtime.Hub, opts ...forecast.Option) session.Factory {
	return func(id string) *forecast.Controller {
		c := forecast.NewController(q, opts...)
		if hub != nil {
			c.OnChange(func(st models.ViewState) {
				hub.Publish(realtime.Event{Session: id, State: st, Screen: forecast.Render(st)})
			})
		}
		return c
	}
}

func NewServer(q forecast.Querier, sessions *session.Store, hub *realtime.Hub, opts ...forecast.Option) *Server {
	if hub != nil {
		sessions.OnEvict(hub.CloseSession)
	}
	return &Server{querier: q, opts: opts, sessions: sessions, hub: hub}
}

// WithRateLimit applies mw to the endpoints that reach the weather provider.
func (s *Server) WithRateLimit(mw func(http.Handler) http.Handler) *Server {
	s.limit = mw
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	limited := r
	if s.limit != nil {
		limited = r.With(s.limit)
	}
	limited.Get("/forecast", s.handleForecast)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleSessionCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleSessionGet)
			r.Delete("/", s.handleSessionDelete)
			r.Put("/place", s.handleSessionPlace)
			if s.limit != nil {
				r.With(s.limit).Post("/query", s.handleSessionQuery)
			} else {
				r.Post("/query", s.handleSessionQuery)
			}
			r.Post("/clear", s.handleSessionClear)
			r.Post("/forecast/toggle", s.handleSessionToggle)
			r.Get("/ws", s.handleSessionWS)
		})
	})
}

type jsonErr struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type viewResponse struct {
	ID     string           `json:"id,omitempty"`
	State  models.ViewState `json:"state"`
	Screen models.Screen    `json:"screen"`
	Error  string           `json:"error,omitempty"`
	Code   int              `json:"code,omitempty"`
}

type placeRequest struct {
	Place *string `json:"place"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, jsonErr{Error: msg, Code: status})
}

func view(id string, st models.ViewState) viewResponse {
	return viewResponse{ID: id, State: st, Screen: forecast.Render(st)}
}

// classify maps a SubmitQuery error to an HTTP status and records the outcome.
func classify(err error) int {
	var ve *forecast.ValidationError
	var qe *forecast.QueryError
	switch {
	case err == nil:
		observability.RecordQuery(observability.OutcomeLoaded)
		return http.StatusOK
	case errors.As(err, &ve):
		observability.RecordQuery(observability.OutcomeValidation)
		return http.StatusUnprocessableEntity
	case errors.As(err, &qe):
		observability.RecordQuery(observability.OutcomeQueryError)
		return http.StatusNotFound
	case errors.Is(err, forecast.ErrSuperseded):
		observability.RecordQuery(observability.OutcomeSuperseded)
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func logQuery(place string, err error) {
	var qe *forecast.QueryError
	if errors.As(err, &qe) && qe.Err != nil {
		slog.Info("forecast query failed", "place", place, "error", qe.Err)
		return
	}
	if err != nil {
		slog.Debug("forecast query not applied", "place", place, "error", err)
	}
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	full, _ := strconv.ParseBool(r.URL.Query().Get("full"))

	c := forecast.NewController(s.querier, s.opts...)
	st, err := c.SubmitQuery(r.Context(), city)
	logQuery(city, err)
	status := classify(err)
	if err != nil {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		writeError(w, status, st.Error)
		return
	}
	if full {
		st = c.ToggleForecastExpansion()
	}
	writeJSON(w, http.StatusOK, view("", st))
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, _ *http.Request) {
	id, c := s.sessions.Create()
	slog.Debug("forecast session created", "session", id)
	writeJSON(w, http.StatusCreated, view(id, c.State()))
}

func (s *Server) controller(w http.ResponseWriter, r *http.Request) (string, *forecast.Controller, bool) {
	id := chi.URLParam(r, "id")
	c, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return "", nil, false
	}
	return id, c, true
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	id, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(id, c.State()))
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodePlace(r *http.Request) (placeRequest, error) {
	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return placeRequest{}, err
	}
	return req, nil
}

func (s *Server) handleSessionPlace(w http.ResponseWriter, r *http.Request) {
	id, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	req, err := decodePlace(r)
	if err != nil || req.Place == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"place\": \"...\"}")
		return
	}
	writeJSON(w, http.StatusOK, view(id, c.SetPlaceName(*req.Place)))
}

func (s *Server) handleSessionQuery(w http.ResponseWriter, r *http.Request) {
	id, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	req, err := decodePlace(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	place := c.State().PlaceName
	if req.Place != nil {
		place = *req.Place
	}

	// The result lands in session state, so it must outlive a dropped connection.
	ctx := context.WithoutCancel(r.Context())
	st, err := c.SubmitQuery(ctx, place)
	logQuery(strings.TrimSpace(place), err)
	status := classify(err)

	resp := view(id, st)
	if err != nil {
		resp.Code = status
		resp.Error = st.Error
		if errors.Is(err, forecast.ErrSuperseded) {
			resp.Error = "a newer query replaced this one"
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	id, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(id, c.Clear()))
}

func (s *Server) handleSessionToggle(w http.ResponseWriter, r *http.Request) {
	id, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(id, c.ToggleForecastExpansion()))
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusNotImplemented, "realtime updates disabled")
		return
	}
	id, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.hub.Serve(w, r, id, func() *realtime.Event {
		st := c.State()
		return &realtime.Event{Session: id, State: st, Screen: forecast.Render(st)}
	})
}
