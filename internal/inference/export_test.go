package inference

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-inference-pipeline/internal/model"
)

func TestWriteResultsCSV(t *testing.T) {
	results := []model.AnalysisResult{
		{
			ID:             "r1",
			ImageURL:       "https://img.example.com/1.jpg",
			Quality:        "fresh",
			Confidence:     0.9,
			ProcessingTime: model.Duration(120 * time.Millisecond),
			Predictions: []model.Prediction{
				{ClassID: "ripe", Probability: 0.1},
				{ClassID: "fresh", Probability: 0.9},
			},
			Metadata: model.ResultMetadata{ModelVersion: "1.0.0"},
		},
		{ID: "r2"},
	}

	var buf bytes.Buffer
	n, err := WriteResultsCSV(&buf, results)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, resultColumns, rows[0])
	assert.Equal(t, []string{"r1", "https://img.example.com/1.jpg", "fresh", "0.9000", "120", "fresh", "0.9000", "1.0.0"}, rows[1])
	assert.Equal(t, "", rows[2][5])
}
