package matching

import (
	"strings"

	"groundmatch/server/internal/models"
)

// subdivisionSynonyms maps Dutch and English labels, after lowercasing and
// replacing '-' and '_' with spaces, to a category code.
var subdivisionSynonyms = map[string]models.SubdivisionType{
	"open bebouwing": models.SubdivisionDetached,
	"open":           models.SubdivisionDetached,
	"vrijstaand":     models.SubdivisionDetached,
	"detached":       models.SubdivisionDetached,
	"residential":    models.SubdivisionDetached,

	"halfopen":            models.SubdivisionSemiDetached,
	"half open":           models.SubdivisionSemiDetached,
	"halfopen bebouwing":  models.SubdivisionSemiDetached,
	"half open bebouwing": models.SubdivisionSemiDetached,
	"semi detached":       models.SubdivisionSemiDetached,

	"gesloten":  models.SubdivisionTerraced,
	"rijwoning": models.SubdivisionTerraced,
	"rij":       models.SubdivisionTerraced,
	"terraced":  models.SubdivisionTerraced,

	"appartement": models.SubdivisionApartment,
	"woonst":      models.SubdivisionApartment,
	"apartment":   models.SubdivisionApartment,

	"projectgrond":     models.SubdivisionDevelopmentPlot,
	"verkaveling":      models.SubdivisionDevelopmentPlot,
	"bouwgrond":        models.SubdivisionDevelopmentPlot,
	"kavel":            models.SubdivisionDevelopmentPlot,
	"plot":             models.SubdivisionDevelopmentPlot,
	"grond":            models.SubdivisionDevelopmentPlot,
	"development plot": models.SubdivisionDevelopmentPlot,
	"mixed use":        models.SubdivisionDevelopmentPlot,
	"residual":         models.SubdivisionDevelopmentPlot,
}

// NormalizeSubdivision maps a free-text label to its category code. The
// second return value is false for labels outside the known vocabulary.
func NormalizeSubdivision(raw string) (models.SubdivisionType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	key = strings.NewReplacer("-", " ", "_", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")

	if code, ok := subdivisionSynonyms[key]; ok {
		return code, true
	}

	code := models.SubdivisionType(strings.ReplaceAll(key, " ", "_"))
	for _, known := range models.SubdivisionTypes {
		if code == known {
			return code, true
		}
	}
	return "", false
}
