package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCommand(t *testing.T) {
	input := `{
		"plot": {"location": "Antwerpen Noord", "m2": "450 m²", "budget": "350000", "subdivision_type": "vrijstaand"},
		"preferences": {"min_budget": 300000, "max_budget": 400000, "min_m2": 400, "max_m2": 500,
			"location": "Antwerpen", "subdivision_type": "detached"}
	}`

	var out bytes.Buffer
	scoreCmd.SetIn(strings.NewReader(input))
	scoreCmd.SetOut(&out)
	require.NoError(t, runScore(scoreCmd, nil))

	var got scoreOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 70.0, got.Location)
	assert.Equal(t, 92.5, got.Aggregate)
}

func TestScoreCommand_InvalidInput(t *testing.T) {
	scoreCmd.SetIn(strings.NewReader(`{"plot": {"location": "Gent", "m2": "veel", "budget": "1"}}`))
	scoreCmd.SetOut(&bytes.Buffer{})
	assert.Error(t, runScore(scoreCmd, nil))

	scoreCmd.SetIn(strings.NewReader(`not json`))
	assert.Error(t, runScore(scoreCmd, nil))
}
