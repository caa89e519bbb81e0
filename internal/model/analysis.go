package model

import "time"

// AnalysisRequest is one produce image submitted for quality analysis
type AnalysisRequest struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
}

// Prediction is one class score returned by the model
type Prediction struct {
	ClassID     string  `json:"classId"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// ImageInfo describes the analysed image
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DeviceInfo describes where inference ran. GPU is a pointer so a missing flag is detectable.
type DeviceInfo struct {
	Name string `json:"name"`
	GPU  *bool  `json:"gpu"`
}

// ResultMetadata carries model provenance
type ResultMetadata struct {
	ModelVersion string     `json:"modelVersion"`
	Device       DeviceInfo `json:"device"`
}

// AnalysisResult is the output of one inference call.
type AnalysisResult struct {
	ID             string         `json:"id"`
	ImageURL       string         `json:"imageUrl"`
	Quality        string         `json:"quality"`
	Confidence     float64        `json:"confidence"`
	ProcessingTime Duration       `json:"processingTime"`
	Predictions    []Prediction   `json:"predictions"`
	Image          ImageInfo      `json:"image"`
	Metadata       ResultMetadata `json:"metadata"`
}

// ValidationResult is the verdict of the result validator
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// AIMetricsSnapshot summarises the inference layer's counters.
type AIMetricsSnapshot struct {
	TotalRequests         int64     `json:"totalRequests"`
	Successful            int64     `json:"successful"`
	Failed                int64     `json:"failed"`
	ErrorRate             float64   `json:"errorRate"`
	AverageProcessingTime float64   `json:"averageProcessingTime"` // milliseconds
	Timestamp             time.Time `json:"timestamp"`
}

// MetricFields exposes the numeric fields alert rules can reference.
func (m AIMetricsSnapshot) MetricFields() map[string]float64 {
	return map[string]float64{
		"totalRequests":         float64(m.TotalRequests),
		"successful":            float64(m.Successful),
		"failed":                float64(m.Failed),
		"errorRate":             m.ErrorRate,
		"averageProcessingTime": m.AverageProcessingTime,
	}
}
