package places

import "github.com/tablescout/tablescout/internal/models"

// Google Places API (New) primaryType values mapped to our cuisine strings.
var googleTypeToCuisine = map[string]string{
	"italian_restaurant":       models.CuisineItalian,
	"mexican_restaurant":       models.CuisineMexican,
	"japanese_restaurant":      models.CuisineJapanese,
	"korean_restaurant":        models.CuisineKorean,
	"chinese_restaurant":       models.CuisineChinese,
	"thai_restaurant":          models.CuisineThai,
	"indian_restaurant":        models.CuisineIndian,
	"mediterranean_restaurant": models.CuisineMediterranean,
	"french_restaurant":        models.CuisineFrench,
	"american_restaurant":      models.CuisineAmerican,
	"seafood_restaurant":       models.CuisineSeafood,
	"steak_house":              models.CuisineSteakhouse,
	"pizza_restaurant":         models.CuisinePizza,
	"sushi_restaurant":         models.CuisineSushi,
}

// Additional types array entries that hint at a cuisine.
var googleTypeHints = map[string]string{
	"barbecue_restaurant":       models.CuisineAmerican,
	"hamburger_restaurant":      models.CuisineAmerican,
	"ramen_restaurant":          models.CuisineJapanese,
	"brunch_restaurant":         models.CuisineAmerican,
	"breakfast_restaurant":      models.CuisineAmerican,
	"vegan_restaurant":          models.CuisineOther,
	"vegetarian_restaurant":     models.CuisineOther,
	"vietnamese_restaurant":     models.CuisineOther,
	"greek_restaurant":          models.CuisineMediterranean,
	"turkish_restaurant":        models.CuisineMediterranean,
	"lebanese_restaurant":       models.CuisineMediterranean,
	"spanish_restaurant":        models.CuisineMediterranean,
	"middle_eastern_restaurant": models.CuisineMediterranean,
	"indonesian_restaurant":     models.CuisineOther,
	"caribbean_restaurant":      models.CuisineOther,
	"african_restaurant":        models.CuisineOther,
	"brazilian_restaurant":      models.CuisineOther,
	"peruvian_restaurant":       models.CuisineOther,
}

// mapCuisine maps Google Places type strings to cuisine values. The primary
// type is checked first, then the types array for additional matches. Falls
// back to ["other"] when nothing matches.
func mapCuisine(primaryType string, types []string) []string {
	var cuisines []string
	seen := map[string]bool{}

	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cuisines = append(cuisines, c)
		}
	}

	if primaryType != "" {
		if c, ok := googleTypeToCuisine[primaryType]; ok {
			add(c)
		} else if c, ok := googleTypeHints[primaryType]; ok {
			add(c)
		}
	}

	for _, t := range types {
		if c, ok := googleTypeToCuisine[t]; ok {
			add(c)
		} else if c, ok := googleTypeHints[t]; ok {
			add(c)
		}
	}

	if len(cuisines) == 0 {
		return []string{models.CuisineOther}
	}
	return cuisines
}
