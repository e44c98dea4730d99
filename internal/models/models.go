package models

import "time"

// Timeline is the subset of the Visual Crossing timeline response the service reads.
type Timeline struct {
	ResolvedAddress   string            `json:"resolvedAddress,omitempty"`
	Timezone          string            `json:"timezone,omitempty"`
	TZOffset          *float64          `json:"tzoffset,omitempty"`
	CurrentConditions CurrentConditions `json:"currentConditions"`
	Days              []ForecastDay     `json:"days"`
}

type CurrentConditions struct {
	Temp          float64 `json:"temp"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	Conditions    string  `json:"conditions"`
	Icon          string  `json:"icon"`
	Sunrise       string  `json:"sunrise"`
	Sunset        string  `json:"sunset"`
	DatetimeEpoch int64   `json:"datetimeEpoch"`
}

type ForecastDay struct {
	Datetime string  `json:"datetime"`
	Temp     float64 `json:"temp"`
	Icon     string  `json:"icon"`
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// ViewState is everything a forecast screen needs to draw itself. Current, Forecast,
// IsDay, Sunrise and Sunset are only meaningful while DataLoaded is true.
type ViewState struct {
	PlaceName        string             `json:"place_name"`
	Status           Status             `json:"status"`
	Error            string             `json:"error,omitempty"`
	Current          *CurrentConditions `json:"current,omitempty"`
	Forecast         []ForecastDay      `json:"forecast,omitempty"`
	IsDay            bool               `json:"is_day"`
	Sunrise          string             `json:"sunrise,omitempty"`
	Sunset           string             `json:"sunset,omitempty"`
	DataLoaded       bool               `json:"data_loaded"`
	ShowFullForecast bool               `json:"show_full_forecast"`
	Generation       uint64             `json:"generation"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Clone returns a copy that shares no slices or pointers with s.
func (s ViewState) Clone() ViewState {
	out := s
	if s.Current != nil {
		c := *s.Current
		out.Current = &c
	}
	if s.Forecast != nil {
		out.Forecast = append([]ForecastDay(nil), s.Forecast...)
	}
	return out
}

type InfoCard struct {
	Icon  string `json:"icon"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type CurrentPanel struct {
	PlaceName   string     `json:"place_name"`
	Icon        string     `json:"icon"`
	Temperature string     `json:"temperature"`
	Conditions  string     `json:"conditions"`
	Info        []InfoCard `json:"info"`
}

type ForecastCard struct {
	Key         string `json:"key"`
	Date        string `json:"date"`
	Icon        string `json:"icon"`
	Temperature string `json:"temperature"`
}

type ForecastPanel struct {
	Title         string         `json:"title"`
	Cards         []ForecastCard `json:"cards"`
	ToggleLabel   string         `json:"toggle_label"`
	ArrowRotation int            `json:"arrow_rotation"`
}

// Screen is a ViewState rendered into display strings and asset keys.
type Screen struct {
	Title       string         `json:"title"`
	Placeholder string         `json:"placeholder"`
	Background  string         `json:"background"`
	PlaceName   string         `json:"place_name"`
	Error       string         `json:"error,omitempty"`
	Current     *CurrentPanel  `json:"current,omitempty"`
	Forecast    *ForecastPanel `json:"forecast,omitempty"`
}
