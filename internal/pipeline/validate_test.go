package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-inference-pipeline/internal/model"
)

func validResult() model.AnalysisResult {
	gpu := true
	return model.AnalysisResult{
		ID:             "res-1",
		ImageURL:       "https://cdn.example.com/produce/tomato-01.jpg",
		Quality:        "fresh",
		Confidence:     0.92,
		ProcessingTime: model.Duration(250 * time.Millisecond),
		Predictions: []model.Prediction{
			{ClassID: "fresh_tomato", Label: "Fresh tomato", Probability: 0.92},
			{ClassID: "bruised_tomato", Label: "Bruised tomato", Probability: 0.08},
		},
		Image: model.ImageInfo{Width: 640, Height: 480},
		Metadata: model.ResultMetadata{
			ModelVersion: "2.1.0",
			Device:       model.DeviceInfo{Name: "cuda:0", GPU: &gpu},
		},
	}
}

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://cdn.example.com/a.jpg", true},
		{"https://cdn.example.com/a.JPEG", true},
		{"https://cdn.example.com/dir/a.webp?size=large", true},
		{"http://cdn.example.com/a.jpg", false},
		{"https://cdn.example.com/a.gif", false},
		{"https://cdn.example.com/../etc/passwd.png", false},
		{"https://cdn.example.com/%2E%2E/a.png", false},
		{"https://cdn.example.com/<script>.png", false},
		{"javascript:alert(1).png", false},
		{"https:///a.png", false},
	}
	for _, tt := range tests {
		err := ValidateImageURL(tt.url)
		if tt.valid {
			assert.NoError(t, err, tt.url)
		} else {
			assert.Error(t, err, tt.url)
		}
	}
}

func TestValidateConfidence_BoundaryInclusive(t *testing.T) {
	assert.NoError(t, ValidateConfidence(0.7, 0.7))
	assert.NoError(t, ValidateConfidence(1, 0.7))
	assert.Error(t, ValidateConfidence(0.6999, 0.7))
	assert.Error(t, ValidateConfidence(1.01, 0.7))
}

func TestValidateProcessingTime(t *testing.T) {
	assert.NoError(t, ValidateProcessingTime(10*time.Millisecond, 10*time.Millisecond, time.Second))
	assert.NoError(t, ValidateProcessingTime(time.Second, 10*time.Millisecond, time.Second))
	assert.Error(t, ValidateProcessingTime(time.Millisecond, 10*time.Millisecond, time.Second))
	assert.Error(t, ValidateProcessingTime(2*time.Second, 10*time.Millisecond, time.Second))
}

func TestValidateImageDimensions(t *testing.T) {
	assert.NoError(t, ValidateImageDimensions(model.ImageInfo{Width: 100, Height: 100}))
	assert.NoError(t, ValidateImageDimensions(model.ImageInfo{Width: 2000, Height: 1000}))
	assert.Error(t, ValidateImageDimensions(model.ImageInfo{Width: 99, Height: 100}))
	assert.Error(t, ValidateImageDimensions(model.ImageInfo{Width: 5000, Height: 4000}))
	assert.Error(t, ValidateImageDimensions(model.ImageInfo{Width: 2100, Height: 1000}))
	assert.Error(t, ValidateImageDimensions(model.ImageInfo{Width: 400, Height: 900}))
}

func TestValidatePredictions(t *testing.T) {
	assert.Empty(t, ValidatePredictions(validResult().Predictions, 1))
	assert.Len(t, ValidatePredictions(nil, 1), 1)

	bad := []model.Prediction{
		{ClassID: "ok", Label: "ok", Probability: 1.5},
		{ClassID: "has space", Label: "ok", Probability: 0.5},
		{ClassID: "ok", Label: "  ", Probability: 0.5},
	}
	assert.Len(t, ValidatePredictions(bad, 1), 3)
}

func TestValidateMetadata(t *testing.T) {
	assert.Empty(t, ValidateMetadata(validResult().Metadata))
	errs := ValidateMetadata(model.ResultMetadata{ModelVersion: "latest"})
	assert.Len(t, errs, 2)
}

func TestValidateAnalysisResult(t *testing.T) {
	opts := DefaultValidationOptions()

	verdict := ValidateAnalysisResult(validResult(), opts)
	assert.True(t, verdict.IsValid)
	assert.Empty(t, verdict.Errors)
	assert.Empty(t, verdict.Warnings)

	atThreshold := validResult()
	atThreshold.Confidence = opts.ConfidenceThreshold
	verdict = ValidateAnalysisResult(atThreshold, opts)
	assert.True(t, verdict.IsValid)
	assert.Len(t, verdict.Warnings, 1)

	below := validResult()
	below.Confidence = opts.ConfidenceThreshold - 0.01
	verdict = ValidateAnalysisResult(below, opts)
	assert.False(t, verdict.IsValid)
	assert.Len(t, verdict.Errors, 1)
}

func TestValidateAnalysisResult_Warnings(t *testing.T) {
	r := validResult()
	noGPU := false
	r.Metadata.Device.GPU = &noGPU
	r.ProcessingTime = model.Duration(6 * time.Second)

	verdict := ValidateAnalysisResult(r, DefaultValidationOptions())
	assert.True(t, verdict.IsValid)
	assert.Len(t, verdict.Warnings, 2)
}

func TestValidateAnalysisResult_ImageURLOptional(t *testing.T) {
	r := validResult()
	r.ImageURL = ""
	assert.True(t, ValidateAnalysisResult(r, DefaultValidationOptions()).IsValid)

	opts := DefaultValidationOptions()
	opts.RequireImageURL = true
	assert.False(t, ValidateAnalysisResult(r, opts).IsValid)
}

type selfChecking struct{ ok bool }

func (s selfChecking) Validate() error {
	if !s.ok {
		return errors.New("not ok")
	}
	return nil
}

func TestResultValidator_CheckResult(t *testing.T) {
	v := NewResultValidator(DefaultValidationOptions())

	r := validResult()
	require.NoError(t, v.CheckResult(r))
	require.NoError(t, v.CheckResult(&r))
	require.NoError(t, v.CheckResult(42))
	require.NoError(t, v.CheckResult(selfChecking{ok: true}))

	r.Confidence = 0.1
	assert.ErrorIs(t, v.CheckResult(r), ErrValidationFailed)
	assert.ErrorIs(t, v.CheckResult((*model.AnalysisResult)(nil)), ErrValidationFailed)
	assert.ErrorIs(t, v.CheckResult(selfChecking{}), ErrValidationFailed)
}
