package pipeline

import (
	"sort"
	"sync"
	"time"

	"go-inference-pipeline/internal/model"
)

// Error ring limits
const (
	DefaultMaxErrorRecords = 100
	frequentErrorThreshold = 5
	recentErrorLimit       = 10
)

// statsTracker serialises every counter update so TotalProcessed always
// equals SuccessCount + FailureCount for any reader.
type statsTracker struct {
	mu        sync.Mutex
	stats     model.ProcessingStats
	errors    []model.ErrorRecord // oldest LastSeen first
	maxErrors int
}

func newStatsTracker(maxErrors int) *statsTracker {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrorRecords
	}
	return &statsTracker{maxErrors: maxErrors}
}

// recordChunk accounts a resolved chunk
func (st *statsTracker) recordChunk(succeeded, failed int, elapsed time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.stats.SuccessCount += int64(succeeded)
	st.stats.FailureCount += int64(failed)
	st.stats.TotalProcessed += int64(succeeded + failed)
	st.stats.ChunksProcessed++
	st.stats.TotalTime += model.Duration(elapsed)
	st.stats.AverageTime = st.stats.TotalTime / model.Duration(st.stats.ChunksProcessed)
}

func (st *statsTracker) recordRetry() {
	st.mu.Lock()
	st.stats.RetryCount++
	st.mu.Unlock()
}

func (st *statsTracker) recordTrip() {
	st.mu.Lock()
	st.stats.CircuitBreakerTrips++
	st.mu.Unlock()
}

// recordError bumps the entry for message, moving it to the newest position
// and evicting the stalest entry when the ring is full.
func (st *statsTracker) recordError(message string, at time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for i, rec := range st.errors {
		if rec.Message == message {
			rec.Count++
			rec.LastSeen = at
			st.errors = append(st.errors[:i], st.errors[i+1:]...)
			st.errors = append(st.errors, rec)
			return
		}
	}

	if len(st.errors) >= st.maxErrors {
		st.errors = st.errors[1:]
	}
	st.errors = append(st.errors, model.ErrorRecord{Message: message, Count: 1, LastSeen: at})
}

func (st *statsTracker) snapshot() model.ProcessingStats {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.stats
	s.RecentErrors = make([]model.ErrorRecord, len(st.errors))
	copy(s.RecentErrors, st.errors)
	return s
}

func (st *statsTracker) summary() model.ErrorSummary {
	st.mu.Lock()
	defer st.mu.Unlock()

	summary := model.ErrorSummary{
		Unique:   len(st.errors),
		Frequent: []model.ErrorRecord{},
		Recent:   []model.ErrorRecord{},
	}
	for _, rec := range st.errors {
		summary.Total += int64(rec.Count)
		if rec.Count >= frequentErrorThreshold {
			summary.Frequent = append(summary.Frequent, rec)
		}
	}
	sort.SliceStable(summary.Frequent, func(i, j int) bool {
		return summary.Frequent[i].Count > summary.Frequent[j].Count
	})

	for i := len(st.errors) - 1; i >= 0 && len(summary.Recent) < recentErrorLimit; i-- {
		summary.Recent = append(summary.Recent, st.errors[i])
	}
	return summary
}

func (st *statsTracker) reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.stats = model.ProcessingStats{}
	st.errors = nil
}
