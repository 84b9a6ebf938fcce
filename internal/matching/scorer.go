// Package matching scores how well a plot fits a client's preferences.
package matching

import (
	"math"
	"strings"

	"groundmatch/server/internal/models"
)

const (
	fullScore    = 100.0
	partialScore = 70.0
)

// Score rates the plot against the preferences on every dimension. It is
// pure and never fails; absent preferences score 100.
func Score(plot models.Ground, prefs models.Preferences) models.Scores {
	return models.Scores{
		Area:     round2(rangeScore(float64(plot.M2), intBound(prefs.MinM2), intBound(prefs.MaxM2))),
		Budget:   round2(rangeScore(plot.Budget, floatBound(prefs.MinBudget), floatBound(prefs.MaxBudget))),
		Location: LocationScore(plot.Location, prefs.Location),
		Type:     TypeScore(plot.SubdivisionType, prefs.SubdivisionType),
	}
}

// rangeScore rates v against optional bounds. A value at the centre of a
// closed range scores 100 and falls linearly to 0 at either bound. With a
// single bound the score falls from 100 at the bound to 0 at half the bound
// away from it.
func rangeScore(v float64, min, max *float64) float64 {
	if min == nil && max == nil {
		return fullScore
	}
	if min != nil && v < *min {
		return 0
	}
	if max != nil && v > *max {
		return 0
	}

	switch {
	case min != nil && max != nil:
		half := (*max - *min) / 2
		if half <= 0 {
			return fullScore
		}
		mid := *min + half
		return clamp(fullScore * (1 - math.Abs(v-mid)/half))
	case min != nil:
		return clamp(fullScore * (1 - (v-*min)/(0.5*(*min))))
	default:
		return clamp(fullScore * (1 - (*max-v)/(0.5*(*max))))
	}
}

// LocationScore compares locations case-insensitively: equal is 100,
// one containing the other is 70, anything else 0.
func LocationScore(plotLocation string, preferred *string) float64 {
	if preferred == nil {
		return fullScore
	}
	want := strings.ToLower(strings.TrimSpace(*preferred))
	if want == "" {
		return fullScore
	}
	have := strings.ToLower(strings.TrimSpace(plotLocation))
	switch {
	case have == "":
		return 0
	case have == want:
		return fullScore
	case strings.Contains(have, want), strings.Contains(want, have):
		return partialScore
	default:
		return 0
	}
}

// TypeScore is 100 when both sides normalize to the same category.
func TypeScore(plotType models.SubdivisionType, preferred *models.SubdivisionType) float64 {
	if preferred == nil || strings.TrimSpace(string(*preferred)) == "" {
		return fullScore
	}
	want, ok := NormalizeSubdivision(string(*preferred))
	if !ok {
		return 0
	}
	have, ok := NormalizeSubdivision(string(plotType))
	if !ok || have != want {
		return 0
	}
	return fullScore
}

// A bound of zero or less constrains nothing and is treated as absent.
func intBound(p *int) *float64 {
	if p == nil || *p <= 0 {
		return nil
	}
	v := float64(*p)
	return &v
}

func floatBound(p *float64) *float64 {
	if p == nil || *p <= 0 || math.IsNaN(*p) {
		return nil
	}
	return p
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(fullScore, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
