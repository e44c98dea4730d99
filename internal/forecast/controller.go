package forecast

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/forecast-service/internal/models"
)

const (
	forecastDays   = 7
	collapsedCards = 3
)

// Querier fetches the upstream timeline for a place name.
type Querier interface {
	Timeline(ctx context.Context, placeName string) (models.Timeline, error)
}

type Option func(*Controller)

// WithLocation sets the zone used for day/night when a response carries no
// tzoffset.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns the view state of one forecast screen. Every transition is
// applied under mu; the upstream call runs without it. A response is only applied
// when its generation is still the latest, so the last request issued wins rather
// than the last response received.
type Controller struct {
	client Querier
	loc    *time.Location
	now    func() time.Time

	mu        sync.Mutex
	state     models.ViewState
	observers []func(models.ViewState)
}

func NewController(client Querier, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = models.ViewState{Status: models.StatusIdle, UpdatedAt: c.now().UTC()}
	return c
}

// OnChange registers fn to receive a snapshot after every transition. fn runs while
// the controller is locked and must not call back into it.
func (c *Controller) OnChange(fn func(models.ViewState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) State() models.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// SubmitQuery looks up placeName and replaces the loaded data with the result.
// Returns *ValidationError for a blank name (no request is made), *QueryError for
// any upstream failure and ErrSuperseded when a newer query or Clear overtook it.
func (c *Controller) SubmitQuery(ctx context.Context, placeName string) (models.ViewState, error) {
	place := strings.TrimSpace(placeName)

	c.mu.Lock()
	if place == "" {
		// Blank input leaves the stored place name and data untouched.
		c.state.Error = MsgEmptyPlace
		snap := c.commitLocked()
		c.mu.Unlock()
		return snap, &ValidationError{Message: MsgEmptyPlace}
	}
	c.state.PlaceName = placeName
	c.state.Generation++
	gen := c.state.Generation
	c.state.Status = models.StatusLoading
	c.state.Error = ""
	c.commitLocked()
	c.mu.Unlock()

	tl, err := c.client.Timeline(ctx, place)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.state.Generation {
		return c.state.Clone(), ErrSuperseded
	}

	var view derivedView
	if err == nil {
		view, err = derive(tl, c.loc)
	}
	if err != nil {
		c.resetDataLocked()
		c.state.Status = models.StatusError
		c.state.Error = MsgCityNotFound
		return c.commitLocked(), &QueryError{Message: MsgCityNotFound, Err: err}
	}

	c.state.Current = &view.current
	c.state.Forecast = view.forecast
	c.state.IsDay = view.isDay
	c.state.Sunrise = view.sunrise
	c.state.Sunset = view.sunset
	c.state.DataLoaded = true
	c.state.Status = models.StatusLoaded
	c.state.Error = ""
	return c.commitLocked(), nil
}

// Clear returns the screen to its initial state and abandons any query in flight.
func (c *Controller) Clear() models.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Generation++
	c.resetDataLocked()
	c.state.PlaceName = ""
	c.state.Error = ""
	c.state.Status = models.StatusIdle
	return c.commitLocked()
}

// SetPlaceName records the search box contents. Emptying the box clears the screen.
func (c *Controller) SetPlaceName(name string) models.ViewState {
	if name == "" {
		return c.Clear()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.PlaceName = name
	return c.commitLocked()
}

func (c *Controller) ToggleForecastExpansion() models.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ShowFullForecast = !c.state.ShowFullForecast
	return c.commitLocked()
}

func (c *Controller) resetDataLocked() {
	c.state.Current = nil
	c.state.Forecast = nil
	c.state.IsDay = false
	c.state.Sunrise = ""
	c.state.Sunset = ""
	c.state.DataLoaded = false
}

func (c *Controller) commitLocked() models.ViewState {
	c.state.UpdatedAt = c.now().UTC()
	snap := c.state.Clone()
	for _, fn := range c.observers {
		fn(snap.Clone())
	}
	return snap
}

type derivedView struct {
	current  models.CurrentConditions
	forecast []models.ForecastDay
	isDay    bool
	sunrise  string
	sunset   string
}

func derive(tl models.Timeline, fallback *time.Location) (derivedView, error) {
	cur := tl.CurrentConditions
	now := LocalNow(cur.DatetimeEpoch, tl.TZOffset, fallback)

	rise, err := ParseTimeOfDay(now, cur.Sunrise)
	if err != nil {
		return derivedView{}, fmt.Errorf("sunrise: %w", err)
	}
	set, err := ParseTimeOfDay(now, cur.Sunset)
	if err != nil {
		return derivedView{}, fmt.Errorf("sunset: %w", err)
	}

	return derivedView{
		current:  cur,
		forecast: upcomingDays(tl.Days),
		isDay:    !now.Before(rise) && now.Before(set),
		sunrise:  FormatTimeOfDay(rise),
		sunset:   FormatTimeOfDay(set),
	}, nil
}

// upcomingDays drops today and keeps the following week.
func upcomingDays(days []models.ForecastDay) []models.ForecastDay {
	out := make([]models.ForecastDay, 0, forecastDays)
	if len(days) <= 1 {
		return out
	}
	end := min(len(days), 1+forecastDays)
	return append(out, days[1:end]...)
}
