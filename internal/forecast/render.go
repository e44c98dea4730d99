package forecast

import (
	"fmt"
	"strings"

	"github.com/PetoAdam/homenavi/forecast-service/internal/models"
)

const (
	screenTitle       = "Weather App"
	searchPlaceholder = "Enter city name"
	forecastTitle     = "7-Day Forecast"
	labelShowFull     = "Show Full 7-Day Forecast"
	labelShowLess     = "Show Less"
)

// Render turns a view state into display strings and asset keys.
func Render(s models.ViewState) models.Screen {
	screen := models.Screen{
		Title:       screenTitle,
		Placeholder: searchPlaceholder,
		Background:  string(SelectBackground(s.DataLoaded, s.IsDay)),
		PlaceName:   s.PlaceName,
		Error:       s.Error,
	}

	if s.Current != nil {
		cur := s.Current
		temp := FormatTemperature(cur.Temp)
		screen.Current = &models.CurrentPanel{
			PlaceName:   strings.TrimSpace(s.PlaceName),
			Icon:        string(ResolveIcon(cur.Icon)),
			Temperature: temp,
			Conditions:  cur.Conditions,
			Info: []models.InfoCard{
				{Icon: string(AssetHumidity), Label: "Humidity", Value: fmt.Sprintf("%s%%", trimFloat(cur.Humidity))},
				{Icon: string(AssetPressure), Label: "Pressure", Value: fmt.Sprintf("%s mb", trimFloat(cur.Pressure))},
				{Icon: string(AssetTemperature), Label: "Temperature", Value: temp},
				{Icon: string(AssetSunrise), Label: "Sunrise", Value: s.Sunrise},
				{Icon: string(AssetSunset), Label: "Sunset", Value: s.Sunset},
			},
		}
	}

	if s.Forecast != nil {
		days := s.Forecast
		if !s.ShowFullForecast && len(days) > collapsedCards {
			days = days[:collapsedCards]
		}
		cards := make([]models.ForecastCard, 0, len(days))
		for _, d := range days {
			cards = append(cards, models.ForecastCard{
				Key:         d.Datetime,
				Date:        FormatForecastDate(d.Datetime),
				Icon:        string(ResolveForecastIcon(d.Icon)),
				Temperature: FormatTemperature(d.Temp),
			})
		}
		panel := &models.ForecastPanel{Title: forecastTitle, Cards: cards, ToggleLabel: labelShowFull}
		if s.ShowFullForecast {
			panel.ToggleLabel = labelShowLess
			panel.ArrowRotation = 180
		}
		screen.Forecast = panel
	}

	return screen
}

// trimFloat prints 65 as "65" and 65.2 as "65.2".
func trimFloat(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
