// Package mcp exposes forecast lookups to MCP clients.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PetoAdam/homenavi/forecast-service/internal/forecast"
	"github.com/PetoAdam/homenavi/forecast-service/internal/models"

	"github.com/miyamo2/qilin"
)

const ResourceURI = "forecast://city/{city}"

// ToolForecastRequest contains input parameters for the forecast tool.
type ToolForecastRequest struct {
	City string `json:"city" jsonschema:"description=City or place name to look up"`
	Full bool   `json:"full,omitempty" jsonschema:"description=Return all seven forecast days instead of three"`
}

type Handlers struct {
	querier forecast.Querier
	opts    []forecast.Option
}

func NewHandlers(q forecast.Querier, opts ...forecast.Option) *Handlers {
	return &Handlers{querier: q, opts: opts}
}

// Register adds the forecast tool and resource to q.
func (h *Handlers) Register(q *qilin.Qilin) {
	q.Tool("forecast",
		(*ToolForecastRequest)(nil),
		h.Forecast,
		qilin.ToolWithDescription("Current conditions and daily forecast for a city"),
		qilin.ToolWithAnnotations(qilin.ToolAnnotations{Title: "Weather forecast", ReadOnlyHint: true, OpenWorldHint: true}))

	q.Resource(
		"City Forecast",
		ResourceURI,
		h.CityForecast,
		qilin.ResourceWithDescription("Plain-text forecast summary for a city"),
		qilin.ResourceWithMimeType("text/plain"))
}

// lookup runs one query on a throwaway controller, the same path a screen takes.
func (h *Handlers) lookup(ctx context.Context, city string, full bool) (models.ViewState, error) {
	c := forecast.NewController(h.querier, h.opts...)
	st, err := c.SubmitQuery(ctx, city)
	if err != nil {
		if st.Error != "" {
			return st, errors.New(st.Error)
		}
		return st, err
	}
	if full {
		st = c.ToggleForecastExpansion()
	}
	return st, nil
}

func (h *Handlers) Forecast(c qilin.ToolContext) error {
	var req ToolForecastRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	st, err := h.lookup(c.Context(), req.City, req.Full)
	if err != nil {
		return err
	}
	return c.JSON(forecast.Render(st))
}

func (h *Handlers) CityForecast(c qilin.ResourceContext) error {
	city := strings.ReplaceAll(c.Param("city"), "_", " ")
	st, err := h.lookup(c.Context(), city, true)
	if err != nil {
		return err
	}
	return c.String(Summary(forecast.Render(st)))
}

// Summary formats a rendered screen as a few lines of text.
func Summary(s models.Screen) string {
	var b strings.Builder
	if cur := s.Current; cur != nil {
		fmt.Fprintf(&b, "%s: %s, %s\n", cur.PlaceName, cur.Temperature, cur.Conditions)
		for _, info := range cur.Info {
			fmt.Fprintf(&b, "%s: %s\n", info.Label, info.Value)
		}
	}
	if fc := s.Forecast; fc != nil && len(fc.Cards) > 0 {
		b.WriteString(fc.Title + ":\n")
		for _, card := range fc.Cards {
			fmt.Fprintf(&b, "  %s %s (%s)\n", card.Date, card.Temperature, card.Icon)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
