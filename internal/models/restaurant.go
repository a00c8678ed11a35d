package models

import "time"

// Cuisine values used across providers.
const (
	CuisineItalian       = "italian"
	CuisineMexican       = "mexican"
	CuisineJapanese      = "japanese"
	CuisineKorean        = "korean"
	CuisineChinese       = "chinese"
	CuisineThai          = "thai"
	CuisineIndian        = "indian"
	CuisineMediterranean = "mediterranean"
	CuisineFrench        = "french"
	CuisineAmerican      = "american"
	CuisineSeafood       = "seafood"
	CuisineSteakhouse    = "steakhouse"
	CuisinePizza         = "pizza"
	CuisineSushi         = "sushi"
	CuisineOther         = "other"
)

// Price levels on a 1-4 scale.
const (
	PriceBudget     = 1
	PriceModerate   = 2
	PriceUpscale    = 3
	PriceFineDining = 4
)

// OpeningHours holds human-readable weekly hours.
type OpeningHours struct {
	WeekdayText []string `json:"weekday_text"`
}

// Restaurant is the normalized place record returned by search and details.
// Optional fields are pointers so absent provider data stays distinguishable
// from zero values.
type Restaurant struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Address     string        `json:"address"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	Cuisine     []string      `json:"cuisine"`
	PriceLevel  *int          `json:"price_level,omitempty"`
	Rating      *float64      `json:"rating,omitempty"`
	ReviewCount *int          `json:"review_count,omitempty"`
	Phone       *string       `json:"phone,omitempty"`
	Website     *string       `json:"website,omitempty"`
	Hours       *OpeningHours `json:"hours,omitempty"`
	Summary     *string       `json:"summary,omitempty"`
	CachedAt    *time.Time    `json:"cached_at,omitempty"`
}

// WeatherInfo describes conditions at a location.
type WeatherInfo struct {
	TemperatureF    float64 `json:"temperature_f"`
	Condition       string  `json:"condition"`   // "clear", "clouds", "rain", "snow"
	Description     string  `json:"description"` // "light rain", "overcast clouds"
	OutdoorSuitable bool    `json:"outdoor_suitable"`
	WindMPH         float64 `json:"wind_mph"`
	Humidity        int     `json:"humidity"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
