package inference

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-inference-pipeline/internal/model"
)

// ErrSimulatedFailure is returned by SimulatedAnalyzer at its configured failure rate
var ErrSimulatedFailure = errors.New("simulated inference failure")

var qualityClasses = []struct {
	id, label, quality string
}{
	{"fresh", "Fresh produce", "fresh"},
	{"ripe", "Ripe produce", "ripe"},
	{"overripe", "Overripe produce", "overripe"},
	{"spoiled", "Spoiled produce", "spoiled"},
}

// SimulatedConfig shapes the behaviour of a SimulatedAnalyzer
type SimulatedConfig struct {
	Latency      time.Duration
	FailureRate  float64
	ModelVersion string
	Seed         int64
}

// SimulatedAnalyzer stands in for a model server. It sleeps for Latency and
// returns structurally valid results, failing at FailureRate.
type SimulatedAnalyzer struct {
	cfg SimulatedConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedAnalyzer creates an analyzer; a zero seed uses the clock.
func NewSimulatedAnalyzer(cfg SimulatedConfig) *SimulatedAnalyzer {
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = DefaultConfig().ModelVersion
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedAnalyzer{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

func (a *SimulatedAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (model.AnalysisResult, error) {
	if a.cfg.Latency > 0 {
		timer := time.NewTimer(a.cfg.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.AnalysisResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	a.mu.Lock()
	fail := a.rng.Float64() < a.cfg.FailureRate
	class := qualityClasses[a.rng.Intn(len(qualityClasses))]
	runnerUp := qualityClasses[a.rng.Intn(len(qualityClasses))]
	confidence := 0.75 + a.rng.Float64()*0.24
	a.mu.Unlock()

	if fail {
		return model.AnalysisResult{}, ErrSimulatedFailure
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	gpu := false
	return model.AnalysisResult{
		ID:             id,
		ImageURL:       req.ImageURL,
		Quality:        class.quality,
		Confidence:     confidence,
		ProcessingTime: model.Duration(a.cfg.Latency),
		Predictions: []model.Prediction{
			{ClassID: class.id, Label: class.label, Probability: confidence},
			{ClassID: runnerUp.id, Label: runnerUp.label, Probability: 1 - confidence},
		},
		Image: model.ImageInfo{Width: 640, Height: 480},
		Metadata: model.ResultMetadata{
			ModelVersion: a.cfg.ModelVersion,
			Device:       model.DeviceInfo{Name: "cpu", GPU: &gpu},
		},
	}, nil
}
