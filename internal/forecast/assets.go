package forecast

import (
	"fmt"
	"math"
	"time"
)

// Asset is a key into the client's bundled image set.
type Asset string

const (
	AssetSnowy         Asset = "snowy"
	AssetRain          Asset = "rain"
	AssetFog           Asset = "fog"
	AssetWindyDay      Asset = "windy-day"
	AssetCloudy        Asset = "cloudy"
	AssetCloudyDay     Asset = "cloudy-day"
	AssetCloudyNight   Asset = "cloudy-night"
	AssetClearDay      Asset = "clear-day"
	AssetClearNight    Asset = "clear-night"
	AssetCloudDay      Asset = "cloud-day"
	AssetCloudSnow     Asset = "cloud-snow"
	AssetThunder       Asset = "thunder"
	AssetThunderShower Asset = "thunder-shower"
	AssetShowerDay     Asset = "shower-day"
	AssetDefault       Asset = "default"

	AssetHumidity    Asset = "humidity"
	AssetPressure    Asset = "pressure"
	AssetTemperature Asset = "temperature"
	AssetSunrise     Asset = "sunrise"
	AssetSunset      Asset = "sunset"
	AssetArrow       Asset = "arrow"
	AssetSearch      Asset = "search"

	BackgroundHome  Asset = "home"
	BackgroundDay   Asset = "day"
	BackgroundNight Asset = "night"
)

// Condition codes are Visual Crossing icon names. New codes may be added; existing
// mappings do not change.
var conditionAssets = map[string]Asset{
	"snow":                  AssetSnowy,
	"rain":                  AssetRain,
	"fog":                   AssetFog,
	"wind":                  AssetWindyDay,
	"cloudy":                AssetCloudy,
	"partly-cloudy-day":     AssetCloudyDay,
	"partly-cloudy-night":   AssetCloudyNight,
	"clear-day":             AssetClearDay,
	"clear-night":           AssetClearNight,
	"snow-showers-day":      AssetCloudDay,
	"snow-showers-night":    AssetCloudSnow,
	"thunder-rain":          AssetThunder,
	"thunder-showers-day":   AssetThunderShower,
	"thunder-showers-night": AssetThunderShower,
	"showers-day":           AssetShowerDay,
	"showers-night":         AssetShowerDay,
}

// ResolveIcon maps a current-conditions code to its asset. Unknown codes get
// AssetDefault so the panel always has an image.
func ResolveIcon(code string) Asset {
	if a, ok := conditionAssets[code]; ok {
		return a
	}
	return AssetDefault
}

// ResolveForecastIcon maps a forecast-day code to its asset.
func ResolveForecastIcon(code string) Asset {
	return ResolveIcon(code)
}

func SelectBackground(dataLoaded, isDay bool) Asset {
	switch {
	case !dataLoaded:
		return BackgroundHome
	case isDay:
		return BackgroundDay
	default:
		return BackgroundNight
	}
}

// FormatTemperature rounds half up, so 21.5 shows as 22 and -2.5 as -2.
func FormatTemperature(celsius float64) string {
	return fmt.Sprintf("%d°C", int(math.Floor(celsius+0.5)))
}

// FormatForecastDate turns "2024-11-12" into "12 Nov". Anything that is not a
// calendar date is returned unchanged.
func FormatForecastDate(datetime string) string {
	d, err := time.Parse("2006-01-02", datetime)
	if err != nil {
		return datetime
	}
	return d.Format("2 Jan")
}
