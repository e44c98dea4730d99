package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PetoAdam/homenavi/forecast-service/internal/forecast"
	"github.com/PetoAdam/homenavi/forecast-service/internal/models"
	"github.com/PetoAdam/homenavi/forecast-service/internal/realtime"
	"github.com/PetoAdam/homenavi/forecast-service/internal/session"

	"github.com/go-chi/chi/v5"
)

type stubQuerier struct{}

func (stubQuerier) Timeline(_ context.Context, place string) (models.Timeline, error) {
	if strings.EqualFold(place, "atlantis") {
		return models.Timeline{}, errors.New("upstream status 400")
	}
	zero := 0.0
	days := make([]models.ForecastDay, 0, 9)
	for i := 0; i < 9; i++ {
		days = append(days, models.ForecastDay{
			Datetime: time.Date(2024, 6, 15+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Temp:     18,
			Icon:     "cloudy",
		})
	}
	return models.Timeline{
		ResolvedAddress: place,
		TZOffset:        &zero,
		CurrentConditions: models.CurrentConditions{
			Temp:          21.6,
			Humidity:      65,
			Pressure:      1013,
			Conditions:    "Clear",
			Icon:          "clear-day",
			Sunrise:       "06:05:00",
			Sunset:        "18:00:00",
			DatetimeEpoch: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC).Unix(),
		},
		Days: days,
	}, nil
}

func newTestRouter(limit func(http.Handler) http.Handler) (http.Handler, *session.Store) {
	hub := realtime.NewHub()
	store := session.New(time.Minute, ControllerFactory(stubQuerier{}, hub, forecast.WithLocation(time.UTC)))
	srv := NewServer(stubQuerier{}, store, hub, forecast.WithLocation(time.UTC))
	if limit != nil {
		srv.WithRateLimit(limit)
	}
	r := chi.NewRouter()
	r.Route("/api", srv.RegisterRoutes)
	return r, store
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, viewResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	var resp viewResponse
	if rw.Body.Len() > 0 {
		if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rw.Body.String(), err)
		}
	}
	return rw, resp
}

func TestStatelessForecast(t *testing.T) {
	h, _ := newTestRouter(nil)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCards int
		wantError string
	}{
		{"collapsed", "?city=Rome", http.StatusOK, 3, ""},
		{"full", "?city=Rome&full=true", http.StatusOK, 7, ""},
		{"blank", "?city=%20%20", http.StatusBadRequest, 0, forecast.MsgEmptyPlace},
		{"missing", "", http.StatusBadRequest, 0, forecast.MsgEmptyPlace},
		{"unknown", "?city=Atlantis", http.StatusNotFound, 0, forecast.MsgCityNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw, resp := do(t, h, http.MethodGet, "/api/forecast"+tt.query, "")
			if rw.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rw.Code, tt.wantCode, rw.Body.String())
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if tt.wantCards == 0 {
				return
			}
			if resp.Screen.Forecast == nil || len(resp.Screen.Forecast.Cards) != tt.wantCards {
				t.Fatalf("forecast panel = %+v", resp.Screen.Forecast)
			}
			if resp.Screen.Background != string(forecast.BackgroundDay) {
				t.Errorf("background = %q", resp.Screen.Background)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	h, store := newTestRouter(nil)

	rw, created := do(t, h, http.MethodPost, "/api/sessions", "")
	if rw.Code != http.StatusCreated || created.ID == "" {
		t.Fatalf("create: %d %+v", rw.Code, created)
	}
	if created.State.Status != models.StatusIdle || created.Screen.Background != string(forecast.BackgroundHome) {
		t.Fatalf("initial state = %+v", created.State)
	}
	base := "/api/sessions/" + created.ID

	rw, resp := do(t, h, http.MethodPut, base+"/place", `{"place":"Rome"}`)
	if rw.Code != http.StatusOK || resp.State.PlaceName != "Rome" {
		t.Fatalf("place: %d %+v", rw.Code, resp.State)
	}

	// No body: the stored place name is queried.
	rw, resp = do(t, h, http.MethodPost, base+"/query", "")
	if rw.Code != http.StatusOK {
		t.Fatalf("query: %d %s", rw.Code, rw.Body.String())
	}
	if !resp.State.DataLoaded || resp.State.Status != models.StatusLoaded || len(resp.State.Forecast) != 7 {
		t.Fatalf("query state = %+v", resp.State)
	}
	if resp.Screen.Current == nil || resp.Screen.Current.Temperature != "22°C" {
		t.Fatalf("current panel = %+v", resp.Screen.Current)
	}

	rw, resp = do(t, h, http.MethodPost, base+"/forecast/toggle", "")
	if rw.Code != http.StatusOK || !resp.State.ShowFullForecast || len(resp.Screen.Forecast.Cards) != 7 {
		t.Fatalf("toggle: %d %+v", rw.Code, resp.State)
	}

	rw, resp = do(t, h, http.MethodGet, base, "")
	if rw.Code != http.StatusOK || resp.ID != created.ID || !resp.State.DataLoaded {
		t.Fatalf("get: %d %+v", rw.Code, resp)
	}

	rw, resp = do(t, h, http.MethodPost, base+"/clear", "")
	if rw.Code != http.StatusOK || resp.State.DataLoaded || resp.State.PlaceName != "" || resp.Screen.Current != nil {
		t.Fatalf("clear: %d %+v", rw.Code, resp.State)
	}

	rw, _ = do(t, h, http.MethodDelete, base, "")
	if rw.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rw.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("store still has %d sessions", store.Len())
	}
	rw, resp = do(t, h, http.MethodGet, base, "")
	if rw.Code != http.StatusNotFound || resp.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d %+v", rw.Code, resp)
	}
}

func TestSessionQueryErrors(t *testing.T) {
	h, _ := newTestRouter(nil)
	_, created := do(t, h, http.MethodPost, "/api/sessions", "")
	base := "/api/sessions/" + created.ID

	rw, resp := do(t, h, http.MethodPost, base+"/query", `{"place":"Rome"}`)
	if rw.Code != http.StatusOK {
		t.Fatalf("seed query: %d", rw.Code)
	}
	gen := resp.State.Generation

	rw, resp = do(t, h, http.MethodPost, base+"/query", `{"place":"   "}`)
	if rw.Code != http.StatusUnprocessableEntity || resp.Error != forecast.MsgEmptyPlace {
		t.Fatalf("blank: %d %+v", rw.Code, resp)
	}
	if !resp.State.DataLoaded || resp.State.Generation != gen {
		t.Fatalf("blank query touched loaded data: %+v", resp.State)
	}

	rw, resp = do(t, h, http.MethodPost, base+"/query", `{"place":"Atlantis"}`)
	if rw.Code != http.StatusNotFound || resp.Error != forecast.MsgCityNotFound {
		t.Fatalf("unknown: %d %+v", rw.Code, resp)
	}
	if resp.State.DataLoaded || resp.State.Current != nil || resp.Screen.Background != string(forecast.BackgroundHome) {
		t.Fatalf("failed query kept data: %+v", resp.State)
	}

	rw, _ = do(t, h, http.MethodPost, base+"/query", `{"place":`)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("bad JSON: %d", rw.Code)
	}
	rw, _ = do(t, h, http.MethodPut, base+"/place", `{}`)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("place without field: %d", rw.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	h, _ := newTestRouter(nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/sessions/nope"},
		{http.MethodDelete, "/api/sessions/nope"},
		{http.MethodPost, "/api/sessions/nope/query"},
		{http.MethodPost, "/api/sessions/nope/clear"},
		{http.MethodPost, "/api/sessions/nope/forecast/toggle"},
		{http.MethodGet, "/api/sessions/nope/ws"},
	} {
		rw, _ := do(t, h, tc.method, tc.path, "")
		if rw.Code != http.StatusNotFound {
			t.Errorf("%s %s = %d, want 404", tc.method, tc.path, rw.Code)
		}
	}
}

func TestRateLimitAppliesToUpstreamRoutes(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}
	h, _ := newTestRouter(deny)

	if rw, _ := do(t, h, http.MethodGet, "/api/forecast?city=Rome", ""); rw.Code != http.StatusTooManyRequests {
		t.Fatalf("forecast = %d", rw.Code)
	}
	rw, created := do(t, h, http.MethodPost, "/api/sessions", "")
	if rw.Code != http.StatusCreated {
		t.Fatalf("create should not be limited: %d", rw.Code)
	}
	if rw, _ := do(t, h, http.MethodPost, "/api/sessions/"+created.ID+"/query", `{"place":"Rome"}`); rw.Code != http.StatusTooManyRequests {
		t.Fatalf("query = %d", rw.Code)
	}
	if rw, _ := do(t, h, http.MethodPost, "/api/sessions/"+created.ID+"/clear", ""); rw.Code != http.StatusOK {
		t.Fatalf("clear should not be limited: %d", rw.Code)
	}
}
