package visualcrossing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/forecast-service/internal/models"
)

const (
	DefaultBaseURL = "https://weather.visualcrossing.com"
	timelinePath   = "/VisualCrossingWebServices/rest/services/timeline/"

	maxBodyBytes  = 4 << 20
	maxErrorBytes = 512
)

var ErrMalformedResponse = errors.New("malformed timeline response")

type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.Status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Body)
}

// IsAuthFailure reports whether err is an upstream rejection of the API key.
func IsAuthFailure(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	now        func() time.Time

	warnOnce sync.Once
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. It is applied to a copy of the HTTP client,
// so a client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.httpClient.Timeout != c.timeout {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Timeline fetches current conditions and the daily outlook for placeName in
// metric units. It makes exactly one request and never retries.
func (c *Client) Timeline(ctx context.Context, placeName string) (models.Timeline, error) {
	if c.apiKey == "" {
		c.warnOnce.Do(func() {
			slog.Warn("no Visual Crossing API key configured, serving sample data")
		})
		return c.mockTimeline(placeName), nil
	}

	q := url.Values{}
	q.Set("unitGroup", "metric")
	q.Set("key", c.apiKey)
	q.Set("contentType", "json")
	u := c.baseURL + timelinePath + url.PathEscape(placeName) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.Timeline{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Timeline{}, fmt.Errorf("fetching timeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return models.Timeline{}, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Timeline{}, fmt.Errorf("reading timeline: %w", err)
	}
	return decodeTimeline(body)
}

func decodeTimeline(body []byte) (models.Timeline, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return models.Timeline{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := timelineSchema.Validate(raw); err != nil {
		return models.Timeline{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var tl models.Timeline
	if err := json.Unmarshal(body, &tl); err != nil {
		return models.Timeline{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return tl, nil
}

func (c *Client) mockTimeline(placeName string) models.Timeline {
	now := c.now()
	icons := []string{"clear-day", "partly-cloudy-day", "cloudy", "rain", "showers-day", "partly-cloudy-day", "clear-day", "fog"}

	days := make([]models.ForecastDay, 0, len(icons))
	for i, icon := range icons {
		days = append(days, models.ForecastDay{
			Datetime: now.AddDate(0, 0, i).Format("2006-01-02"),
			Temp:     18 + float64((i%5)-2),
			Icon:     icon,
		})
	}

	_, offset := now.Zone()
	tz := float64(offset) / 3600
	return models.Timeline{
		ResolvedAddress: placeName,
		TZOffset:        &tz,
		CurrentConditions: models.CurrentConditions{
			Temp:          21.6,
			Humidity:      58,
			Pressure:      1016,
			Conditions:    "Partially cloudy",
			Icon:          "partly-cloudy-day",
			Sunrise:       "06:30:00",
			Sunset:        "18:45:00",
			DatetimeEpoch: now.Unix(),
		},
		Days: days,
	}
}
