package matching

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundmatch/server/internal/apperrors"
	"groundmatch/server/internal/models"
)

func TestParseArea(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"975m²", 975, false},
		{"975 m²", 975, false},
		{"975 m2", 975, false},
		{"1.200 m²", 1200, false},
		{"850", 850, false},
		{"450.5 m²", 451, false},
		{"450,75 m2", 451, false},
		{"1.200,5 m²", 1201, false},
		{"1 200 m²", 1200, false},
		{"0,4 m²", 0, true},
		{"4.5.6,7.8", 0, true},
		{"", 0, true},
		{"m²", 0, true},
		{"groot", 0, true},
		{"0 m²", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseArea(tt.input)
			if tt.wantErr {
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"€ 149.000", 149000, false},
		{"€149.000", 149000, false},
		{"349999.50", 349999.5, false},
		{"1.250.000,00", 1250000, false},
		{"1,250,000.00", 1250000, false},
		{"275000", 275000, false},
		{"275000 EUR", 275000, false},
		{"99,95", 99.95, false},
		{"", 0, true},
		{"op aanvraag", 0, true},
		{"-5000", 0, true},
		{"0", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBudget(tt.input)
			if tt.wantErr {
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParsePlot(t *testing.T) {
	plot, err := ParsePlot(PlotInput{
		Location:        " Antwerpen ",
		Area:            "975 m²",
		Budget:          "€ 149.000",
		SubdivisionType: "Open bebouwing",
		Provider:        "immo-noord",
	})
	require.NoError(t, err)

	assert.Equal(t, "Antwerpen", plot.Location)
	assert.Equal(t, 975, plot.M2)
	assert.Equal(t, 149000.0, plot.Budget)
	assert.Equal(t, models.SubdivisionDetached, plot.SubdivisionType)
	assert.Equal(t, "immo-noord", plot.Provider)
}

func TestParsePlot_KeepsUnknownSubdivision(t *testing.T) {
	plot, err := ParsePlot(PlotInput{Location: "Gent", Area: "500", Budget: "200000", SubdivisionType: "hoeve"})
	require.NoError(t, err)
	assert.Equal(t, models.SubdivisionType("hoeve"), plot.SubdivisionType)
}

func TestParsePlot_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input PlotInput
		field string
	}{
		{"bad area", PlotInput{Location: "Gent", Area: "veel", Budget: "100000"}, "m2"},
		{"bad budget", PlotInput{Location: "Gent", Area: "500", Budget: "n/a"}, "budget"},
		{"missing location", PlotInput{Area: "500", Budget: "100000"}, "location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlot(tt.input)
			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

// A square of roughly 0.001 by 0.001 degrees near Antwerp is about 7,750 m².
const squareOutline = `{"type":"Polygon","coordinates":[[[4.400,51.220],[4.401,51.220],[4.401,51.221],[4.400,51.221],[4.400,51.220]]]}`

func TestOutlineArea(t *testing.T) {
	area, err := OutlineArea(json.RawMessage(squareOutline))
	require.NoError(t, err)
	assert.InDelta(t, 7750, area, 600)

	feature := `{"type":"Feature","properties":{},"geometry":` + squareOutline + `}`
	fromFeature, err := OutlineArea(json.RawMessage(feature))
	require.NoError(t, err)
	assert.Equal(t, area, fromFeature)
}

func TestOutlineArea_Invalid(t *testing.T) {
	tests := map[string]string{
		"point":    `{"type":"Point","coordinates":[4.4,51.2]}`,
		"garbage":  `not json`,
		"no shape": `{"type":"Feature","properties":{},"geometry":null}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := OutlineArea(json.RawMessage(raw))
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestParsePlot_AreaFromOutline(t *testing.T) {
	plot, err := ParsePlot(PlotInput{
		Location: "Antwerpen",
		Budget:   "250000",
		Outline:  json.RawMessage(squareOutline),
	})
	require.NoError(t, err)
	assert.Greater(t, plot.M2, 7000)
}

func TestValidatePreferences(t *testing.T) {
	tests := []struct {
		name  string
		prefs models.Preferences
		field string
	}{
		{"empty", models.Preferences{}, ""},
		{"valid ranges", antwerpPreferences(), ""},
		{"negative min m2", models.Preferences{MinM2: intPtr(-1)}, "min_m2"},
		{"inverted m2", models.Preferences{MinM2: intPtr(600), MaxM2: intPtr(500)}, "min_m2"},
		{"negative max budget", models.Preferences{MaxBudget: floatPtr(-10)}, "max_budget"},
		{"inverted budget", models.Preferences{MinBudget: floatPtr(5), MaxBudget: floatPtr(4)}, "min_budget"},
		{"degenerate range", models.Preferences{MinM2: intPtr(500), MaxM2: intPtr(500)}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePreferences(tt.prefs)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
