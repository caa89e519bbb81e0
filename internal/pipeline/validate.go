package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"go-inference-pipeline/internal/model"
)

// ErrValidationFailed marks a chunk whose call succeeded but whose payload was rejected
var ErrValidationFailed = errors.New("result validation failed")

var (
	allowedImageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	injectionMarkers       = []string{"..", "%2e%2e", "<", ">", "javascript:", "data:", "\x00"}
	classIDPattern         = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	semverPattern          = regexp.MustCompile(`^\d+\.\d+\.\d+`)
)

// Dimension and shape bounds for analysed images
const (
	MinImageDimension = 100
	MaxImageDimension = 4096
	MinAspectRatio    = 0.5
	MaxAspectRatio    = 2.0
	MaxLabelLength    = 100

	confidenceWarningMargin = 0.1
	slowProcessingWarning   = 5 * time.Second
)

// ValidationOptions are the thresholds of the result validator
type ValidationOptions struct {
	ConfidenceThreshold float64       `json:"confidenceThreshold"`
	MinProcessingTime   time.Duration `json:"minProcessingTime"`
	MaxProcessingTime   time.Duration `json:"maxProcessingTime"`
	MinPredictions      int           `json:"minPredictions"`
	RequireImageURL     bool          `json:"requireImageUrl"`
}

// DefaultValidationOptions returns the production thresholds
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		ConfidenceThreshold: 0.7,
		MinProcessingTime:   10 * time.Millisecond,
		MaxProcessingTime:   30 * time.Second,
		MinPredictions:      1,
	}
}

// ValidateImageURL checks scheme, extension and injection markers of an image URL.
func ValidateImageURL(raw string) error {
	lowered := strings.ToLower(raw)
	for _, marker := range injectionMarkers {
		if strings.Contains(lowered, marker) {
			return fmt.Errorf("image URL contains forbidden sequence %q", marker)
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("image URL must use https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("image URL has no host")
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if !allowedImageExtensions[ext] {
		return fmt.Errorf("image extension %q is not allowed", ext)
	}
	return nil
}

// ValidateConfidence requires threshold <= confidence <= 1
func ValidateConfidence(confidence, threshold float64) error {
	if confidence < threshold || confidence > 1 {
		return fmt.Errorf("confidence %.3f outside [%.3f, 1]", confidence, threshold)
	}
	return nil
}

// ValidateProcessingTime requires minTime <= d <= maxTime
func ValidateProcessingTime(d, minTime, maxTime time.Duration) error {
	if d < minTime || d > maxTime {
		return fmt.Errorf("processing time %v outside [%v, %v]", d, minTime, maxTime)
	}
	return nil
}

// ValidateImageDimensions checks per-axis bounds and aspect ratio
func ValidateImageDimensions(img model.ImageInfo) error {
	for _, axis := range []struct {
		name string
		v    int
	}{{"width", img.Width}, {"height", img.Height}} {
		if axis.v < MinImageDimension || axis.v > MaxImageDimension {
			return fmt.Errorf("image %s %d outside [%d, %d]", axis.name, axis.v, MinImageDimension, MaxImageDimension)
		}
	}
	ratio := float64(img.Width) / float64(img.Height)
	if ratio < MinAspectRatio || ratio > MaxAspectRatio {
		return fmt.Errorf("image aspect ratio %.2f outside [%.1f, %.1f]", ratio, MinAspectRatio, MaxAspectRatio)
	}
	return nil
}

// ValidatePredictions checks count and per-prediction shape; every problem is reported.
func ValidatePredictions(predictions []model.Prediction, minCount int) []string {
	var errs []string
	if len(predictions) < minCount {
		errs = append(errs, fmt.Sprintf("expected at least %d predictions, got %d", minCount, len(predictions)))
	}
	for i, p := range predictions {
		if p.Probability < 0 || p.Probability > 1 {
			errs = append(errs, fmt.Sprintf("prediction %d: probability %.3f outside [0, 1]", i, p.Probability))
		}
		if label := strings.TrimSpace(p.Label); label == "" || len(label) > MaxLabelLength {
			errs = append(errs, fmt.Sprintf("prediction %d: label must be 1-%d characters", i, MaxLabelLength))
		}
		if !classIDPattern.MatchString(p.ClassID) {
			errs = append(errs, fmt.Sprintf("prediction %d: invalid class id %q", i, p.ClassID))
		}
	}
	return errs
}

// ValidateMetadata requires a semver model version and an explicit GPU flag
func ValidateMetadata(meta model.ResultMetadata) []string {
	var errs []string
	if !semverPattern.MatchString(meta.ModelVersion) {
		errs = append(errs, fmt.Sprintf("model version %q is not semver", meta.ModelVersion))
	}
	if meta.Device.GPU == nil {
		errs = append(errs, "device info must include a gpu flag")
	}
	return errs
}

// ValidateAnalysisResult composes every check into one verdict.
func ValidateAnalysisResult(result model.AnalysisResult, opts ValidationOptions) model.ValidationResult {
	verdict := model.ValidationResult{Errors: []string{}, Warnings: []string{}}
	addErr := func(err error) {
		if err != nil {
			verdict.Errors = append(verdict.Errors, err.Error())
		}
	}

	if result.ImageURL != "" || opts.RequireImageURL {
		addErr(ValidateImageURL(result.ImageURL))
	}
	addErr(ValidateConfidence(result.Confidence, opts.ConfidenceThreshold))
	addErr(ValidateProcessingTime(result.ProcessingTime.Std(), opts.MinProcessingTime, opts.MaxProcessingTime))
	addErr(ValidateImageDimensions(result.Image))
	verdict.Errors = append(verdict.Errors, ValidatePredictions(result.Predictions, opts.MinPredictions)...)
	verdict.Errors = append(verdict.Errors, ValidateMetadata(result.Metadata)...)

	if result.Confidence >= opts.ConfidenceThreshold && result.Confidence < opts.ConfidenceThreshold+confidenceWarningMargin {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("confidence %.3f is within %.1f of the threshold", result.Confidence, confidenceWarningMargin))
	}
	if result.ProcessingTime.Std() > slowProcessingWarning {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("processing took %v", result.ProcessingTime.Std()))
	}
	if gpu := result.Metadata.Device.GPU; gpu != nil && !*gpu {
		verdict.Warnings = append(verdict.Warnings, "inference ran without a GPU")
	}

	verdict.IsValid = len(verdict.Errors) == 0
	return verdict
}

// ResultValidator judges chunk outputs for the batch processor.
type ResultValidator struct {
	Options ValidationOptions
}

// NewResultValidator creates a validator with the given thresholds
func NewResultValidator(opts ValidationOptions) *ResultValidator {
	return &ResultValidator{Options: opts}
}

// CheckResult validates analysis results, lets types with a Validate method
// judge themselves, and accepts anything else.
func (v *ResultValidator) CheckResult(result interface{}) error {
	switch r := result.(type) {
	case model.AnalysisResult:
		return v.check(r)
	case *model.AnalysisResult:
		if r == nil {
			return fmt.Errorf("%w: nil analysis result", ErrValidationFailed)
		}
		return v.check(*r)
	case interface{ Validate() error }:
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
	}
	return nil
}

func (v *ResultValidator) check(r model.AnalysisResult) error {
	verdict := ValidateAnalysisResult(r, v.Options)
	if !verdict.IsValid {
		return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(verdict.Errors, "; "))
	}
	return nil
}
