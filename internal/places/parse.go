package places

import "github.com/tablescout/tablescout/internal/models"

// Field masks keep requests on the Basic SKU to minimize cost.
const (
	searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.rating,places.userRatingCount,places.priceLevel,places.types,places.primaryType," +
		"places.regularOpeningHours,places.websiteUri,places.nationalPhoneNumber"

	detailsFieldMask = "id,displayName,formattedAddress,location,rating,userRatingCount," +
		"priceLevel,types,primaryType,regularOpeningHours,websiteUri,nationalPhoneNumber,editorialSummary"
)

// Cost per call in cents with Basic field masks.
const (
	costSearchTextCents   = 3.2
	costPlaceDetailsCents = 1.7
)

// Google Places price level enum to our 1-4 scale.
var priceMap = map[string]int{
	"PRICE_LEVEL_FREE":           models.PriceBudget,
	"PRICE_LEVEL_INEXPENSIVE":    models.PriceBudget,
	"PRICE_LEVEL_MODERATE":       models.PriceModerate,
	"PRICE_LEVEL_EXPENSIVE":      models.PriceUpscale,
	"PRICE_LEVEL_VERY_EXPENSIVE": models.PriceFineDining,
}

// placePayload mirrors a place object in the Places API (New) response.
type placePayload struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating              *float64 `json:"rating,omitempty"`
	UserRatingCount     *int     `json:"userRatingCount,omitempty"`
	PriceLevel          string   `json:"priceLevel,omitempty"`
	Types               []string `json:"types,omitempty"`
	PrimaryType         string   `json:"primaryType,omitempty"`
	RegularOpeningHours *struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours,omitempty"`
	WebsiteURI          *string `json:"websiteUri,omitempty"`
	NationalPhoneNumber *string `json:"nationalPhoneNumber,omitempty"`
	EditorialSummary    *struct {
		Text string `json:"text"`
	} `json:"editorialSummary,omitempty"`
}

type searchResponse struct {
	Places []placePayload `json:"places"`
}

type searchRequest struct {
	TextQuery    string       `json:"textQuery"`
	LocationBias locationBias `json:"locationBias"`
	MaxResults   int          `json:"maxResultCount"`
	LanguageCode string       `json:"languageCode"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// parsePlace converts a raw place payload into a Restaurant.
func parsePlace(p placePayload) models.Restaurant {
	name := p.DisplayName.Text
	if name == "" {
		name = "Unknown"
	}

	var priceLevel *int
	if lvl, ok := priceMap[p.PriceLevel]; ok {
		priceLevel = &lvl
	}

	var hours *models.OpeningHours
	if p.RegularOpeningHours != nil && len(p.RegularOpeningHours.WeekdayDescriptions) > 0 {
		hours = &models.OpeningHours{WeekdayText: p.RegularOpeningHours.WeekdayDescriptions}
	}

	var summary *string
	if p.EditorialSummary != nil && p.EditorialSummary.Text != "" {
		summary = &p.EditorialSummary.Text
	}

	return models.Restaurant{
		ID:          p.ID,
		Name:        name,
		Address:     p.FormattedAddress,
		Lat:         p.Location.Latitude,
		Lng:         p.Location.Longitude,
		Cuisine:     mapCuisine(p.PrimaryType, p.Types),
		PriceLevel:  priceLevel,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingCount,
		Phone:       p.NationalPhoneNumber,
		Website:     p.WebsiteURI,
		Hours:       hours,
		Summary:     summary,
	}
}
