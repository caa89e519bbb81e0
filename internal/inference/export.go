package inference

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"go-inference-pipeline/internal/model"
)

var resultColumns = []string{
	"id", "image_url", "quality", "confidence", "processing_time_ms",
	"top_class", "top_probability", "model_version",
}

// WriteResultsCSV writes one row per result and returns the row count
func WriteResultsCSV(w io.Writer, results []model.AnalysisResult) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(resultColumns); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	for i, r := range results {
		var topClass, topProbability string
		if len(r.Predictions) > 0 {
			top := r.Predictions[0]
			for _, p := range r.Predictions[1:] {
				if p.Probability > top.Probability {
					top = p
				}
			}
			topClass = top.ClassID
			topProbability = strconv.FormatFloat(top.Probability, 'f', 4, 64)
		}
		row := []string{
			r.ID,
			r.ImageURL,
			r.Quality,
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
			strconv.FormatFloat(r.ProcessingTime.Milliseconds(), 'f', 0, 64),
			topClass,
			topProbability,
			r.Metadata.ModelVersion,
		}
		if err := writer.Write(row); err != nil {
			return i, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}
	return len(results), nil
}
