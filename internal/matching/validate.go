package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"groundmatch/server/internal/apperrors"
	"groundmatch/server/internal/models"
)

// PlotInput is a plot as it arrives from forms and scrapers, with area and
// budget still in their display form ("975 m²", "€ 149.000").
type PlotInput struct {
	Location        string          `json:"location"`
	Address         string          `json:"address"`
	Area            string          `json:"m2"`
	Budget          string          `json:"budget"`
	SubdivisionType string          `json:"subdivision_type"`
	Provider        string          `json:"provider"`
	Outline         json.RawMessage `json:"outline,omitempty"`
}

// ParsePlot converts raw input into a validated Ground. When the area text
// is empty the area is taken from the GeoJSON parcel outline.
func ParsePlot(in PlotInput) (models.Ground, error) {
	var area int
	var err error
	if strings.TrimSpace(in.Area) == "" && len(in.Outline) > 0 {
		area, err = OutlineArea(in.Outline)
	} else {
		area, err = ParseArea(in.Area)
	}
	if err != nil {
		return models.Ground{}, err
	}

	budget, err := ParseBudget(in.Budget)
	if err != nil {
		return models.Ground{}, err
	}

	subdivision := models.SubdivisionType(strings.TrimSpace(in.SubdivisionType))
	if code, ok := NormalizeSubdivision(in.SubdivisionType); ok {
		subdivision = code
	}

	plot := models.Ground{
		Location:        strings.TrimSpace(in.Location),
		Address:         strings.TrimSpace(in.Address),
		M2:              area,
		Budget:          budget,
		SubdivisionType: subdivision,
		Provider:        strings.TrimSpace(in.Provider),
	}
	if err := ValidatePlot(plot); err != nil {
		return models.Ground{}, err
	}
	return plot, nil
}

// ParseArea reads a surface such as "975m²", "1.200 m2" or "850". Decimal
// areas are rounded to whole square metres.
func ParseArea(text string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	for _, unit := range []string{"m²", "m2", "sqm"} {
		s = strings.TrimSuffix(strings.TrimSpace(s), unit)
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, apperrors.NewValidationError("m2", text, "missing area")
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return 0, apperrors.NewValidationError("m2", text, "not a number")
		}
	}

	value, err := strconv.ParseFloat(normalizeDecimal(s), 64)
	if err != nil || math.IsInf(value, 0) {
		return 0, apperrors.NewValidationError("m2", text, "not a number")
	}
	area := math.Round(value)
	if area <= 0 {
		return 0, apperrors.NewValidationError("m2", text, "must be positive")
	}
	if area > math.MaxInt32 {
		return 0, apperrors.NewValidationError("m2", text, "too large")
	}
	return int(area), nil
}

// ParseBudget reads a price such as "€ 149.000", "349999.50" or
// "1.250.000,00". A single separator followed by exactly three digits is a
// thousands separator.
func ParseBudget(text string) (float64, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "EUR")
	s = strings.NewReplacer(" ", "", "\u00a0", "", "€", "").Replace(s)
	if s == "" {
		return 0, apperrors.NewValidationError("budget", text, "missing budget")
	}

	s = normalizeDecimal(s)
	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, apperrors.NewValidationError("budget", text, "not a number")
	}
	if value <= 0 {
		return 0, apperrors.NewValidationError("budget", text, "must be positive")
	}
	return value, nil
}

func normalizeDecimal(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || len(s)-lastDot-1 == 3 {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	default:
		return s
	}
}

// OutlineArea returns the geodesic area in whole square metres of a GeoJSON
// polygon, multipolygon or a feature wrapping one.
func OutlineArea(raw json.RawMessage) (int, error) {
	geom, err := decodeOutline(raw)
	if err != nil {
		return 0, apperrors.NewValidationError("outline", "", err.Error())
	}

	switch geom.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return 0, apperrors.NewValidationError("outline", "", fmt.Sprintf("unsupported geometry %s", geom.GeoJSONType()))
	}

	area := int(math.Round(math.Abs(geo.Area(geom))))
	if area <= 0 {
		return 0, apperrors.NewValidationError("outline", "", "outline has no area")
	}
	return area, nil
}

func decodeOutline(raw json.RawMessage) (orb.Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode outline: %w", err)
	}

	if probe.Type == "Feature" {
		feature, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		if feature.Geometry == nil {
			return nil, fmt.Errorf("feature has no geometry")
		}
		return feature.Geometry, nil
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	if g.Coordinates == nil {
		return nil, fmt.Errorf("geometry has no coordinates")
	}
	return g.Geometry(), nil
}

// ValidatePlot checks the numeric fields the scorer relies on.
func ValidatePlot(plot models.Ground) error {
	if strings.TrimSpace(plot.Location) == "" {
		return apperrors.NewValidationError("location", "", "required")
	}
	if plot.M2 <= 0 {
		return apperrors.NewValidationError("m2", strconv.Itoa(plot.M2), "must be positive")
	}
	if math.IsNaN(plot.Budget) || math.IsInf(plot.Budget, 0) || plot.Budget <= 0 {
		return apperrors.NewValidationError("budget", strconv.FormatFloat(plot.Budget, 'f', -1, 64), "must be positive")
	}
	return nil
}

// ValidatePreferences rejects negative bounds and inverted ranges.
func ValidatePreferences(p models.Preferences) error {
	if p.MinM2 != nil && *p.MinM2 < 0 {
		return apperrors.NewValidationError("min_m2", strconv.Itoa(*p.MinM2), "must not be negative")
	}
	if p.MaxM2 != nil && *p.MaxM2 < 0 {
		return apperrors.NewValidationError("max_m2", strconv.Itoa(*p.MaxM2), "must not be negative")
	}
	if p.MinM2 != nil && p.MaxM2 != nil && *p.MinM2 > *p.MaxM2 {
		return apperrors.NewValidationError("min_m2", strconv.Itoa(*p.MinM2), "greater than max_m2")
	}

	budgets := []struct {
		field string
		v     *float64
	}{{"min_budget", p.MinBudget}, {"max_budget", p.MaxBudget}}
	for _, b := range budgets {
		field, v := b.field, b.v
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return apperrors.NewValidationError(field, "", "not a number")
		}
		if *v < 0 {
			return apperrors.NewValidationError(field, strconv.FormatFloat(*v, 'f', -1, 64), "must not be negative")
		}
	}
	if p.MinBudget != nil && p.MaxBudget != nil && *p.MinBudget > *p.MaxBudget {
		return apperrors.NewValidationError("min_budget", strconv.FormatFloat(*p.MinBudget, 'f', -1, 64), "greater than max_budget")
	}
	return nil
}
