package inference

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-inference-pipeline/internal/events"
	"go-inference-pipeline/internal/model"
	"go-inference-pipeline/internal/pipeline"
)

type analyzerFunc func(ctx context.Context, req model.AnalysisRequest) (model.AnalysisResult, error)

func (f analyzerFunc) Analyze(ctx context.Context, req model.AnalysisRequest) (model.AnalysisResult, error) {
	return f(ctx, req)
}

func newTestService(t *testing.T, analyzer Analyzer, bus *events.Bus, timeout time.Duration) *Service {
	t.Helper()
	bp, err := pipeline.NewBatchProcessor(pipeline.DefaultConfig(), nil, bus, nil, zap.NewNop())
	require.NoError(t, err)
	return NewService(Config{Timeout: timeout, ModelVersion: "1.0.0"}, analyzer, bp, bus, zap.NewNop())
}

func requests(n int) []model.AnalysisRequest {
	reqs := make([]model.AnalysisRequest, n)
	for i := range reqs {
		reqs[i] = model.AnalysisRequest{
			ID:       fmt.Sprintf("req-%d", i),
			ImageURL: fmt.Sprintf("https://images.example.com/crate/%d.jpg", i),
		}
	}
	return reqs
}

func TestService_AnalyzeTimesOut(t *testing.T) {
	blocking := analyzerFunc(func(ctx context.Context, _ model.AnalysisRequest) (model.AnalysisResult, error) {
		<-ctx.Done()
		return model.AnalysisResult{}, ctx.Err()
	})
	svc := newTestService(t, blocking, nil, 20*time.Millisecond)

	_, err := svc.Analyze(context.Background(), requests(1)[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	m := svc.Metrics()
	assert.Equal(t, int64(1), m.TotalRequests)
	assert.Equal(t, int64(1), m.Failed)
	assert.Equal(t, 1.0, m.ErrorRate)
}

func TestService_AnalyzeImagesThroughProcessor(t *testing.T) {
	sim := NewSimulatedAnalyzer(SimulatedConfig{Latency: 15 * time.Millisecond, Seed: 7})
	svc := newTestService(t, sim, nil, time.Second)

	result, err := svc.AnalyzeImages(context.Background(), requests(7),
		pipeline.WithMaxBatchSize(3), pipeline.WithConcurrency(3))
	require.NoError(t, err)
	require.Len(t, result.Results, 7)
	assert.Empty(t, result.Failed)

	ids := map[string]bool{}
	for _, r := range result.Results {
		ids[r.ID] = true
	}
	assert.Len(t, ids, 7)

	m := svc.Metrics()
	assert.Equal(t, int64(7), m.Successful)
	assert.Zero(t, m.ErrorRate)
	assert.GreaterOrEqual(t, m.AverageProcessingTime, 15.0)
}

func TestService_AnalyzeBatchFailsWholeChunk(t *testing.T) {
	var calls int
	analyzer := analyzerFunc(func(_ context.Context, req model.AnalysisRequest) (model.AnalysisResult, error) {
		calls++
		if req.ID == "req-1" {
			return model.AnalysisResult{}, errors.New("model server returned 503")
		}
		return model.AnalysisResult{ID: req.ID}, nil
	})
	svc := newTestService(t, analyzer, nil, time.Second)

	out, err := svc.AnalyzeBatch(context.Background(), requests(3))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "req-1")
}

func TestService_FillsIdentityFromRequest(t *testing.T) {
	analyzer := analyzerFunc(func(context.Context, model.AnalysisRequest) (model.AnalysisResult, error) {
		return model.AnalysisResult{Quality: "fresh"}, nil
	})
	svc := newTestService(t, analyzer, nil, time.Second)

	req := requests(1)[0]
	result, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.ID, result.ID)
	assert.Equal(t, req.ImageURL, result.ImageURL)
}

func TestService_PublishesAIMetrics(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	sub := bus.AIMetrics.Subscribe(4)
	defer sub.Cancel()

	analyzer := analyzerFunc(func(_ context.Context, req model.AnalysisRequest) (model.AnalysisResult, error) {
		return model.AnalysisResult{ID: req.ID}, nil
	})
	svc := newTestService(t, analyzer, bus, time.Second)

	_, err := svc.AnalyzeBatch(context.Background(), requests(2))
	require.NoError(t, err)

	select {
	case snap := <-sub.C:
		assert.Equal(t, int64(2), snap.TotalRequests)
		assert.Equal(t, int64(2), snap.Successful)
	case <-time.After(time.Second):
		t.Fatal("no AI metrics published")
	}
}

func TestService_InvalidResultsAreRejectedByProcessor(t *testing.T) {
	analyzer := analyzerFunc(func(_ context.Context, req model.AnalysisRequest) (model.AnalysisResult, error) {
		return model.AnalysisResult{ID: req.ID, Confidence: 0.1}, nil
	})
	svc := newTestService(t, analyzer, nil, time.Second)

	result, err := svc.AnalyzeImages(context.Background(), requests(4), pipeline.WithRetryAttempts(0))
	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Len(t, result.Failed, 4)
	require.NotEmpty(t, result.Stats.RecentErrors)
	assert.Contains(t, result.Stats.RecentErrors[0].Message, pipeline.ErrValidationFailed.Error())
}
