package utils

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ProgressTracker counts processed items and logs progress every 100 items
// and on completion.
type ProgressTracker struct {
	Total     int64
	Processed int64
	StartTime time.Time
	Name      string
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int64, name string) *ProgressTracker {
	return &ProgressTracker{
		Total:     total,
		StartTime: time.Now(),
		Name:      name,
	}
}

// Increment is safe for concurrent use.
func (pt *ProgressTracker) Increment() {
	processed := atomic.AddInt64(&pt.Processed, 1)

	if processed%100 == 0 || processed == pt.Total {
		elapsed := time.Since(pt.StartTime)
		rate := float64(processed) / elapsed.Seconds()
		slog.Debug(pt.Name,
			"processed", processed,
			"total", pt.Total,
			"percent", float64(processed)/float64(pt.Total)*100,
			"per_second", rate)
	}
}

// GetProgress returns the current progress
func (pt *ProgressTracker) GetProgress() (int64, int64, float64) {
	processed := atomic.LoadInt64(&pt.Processed)
	if pt.Total == 0 {
		return processed, 0, 100
	}
	return processed, pt.Total, float64(processed) / float64(pt.Total) * 100
}

// ParallelProcessor runs a function over a batch of items on a fixed number
// of goroutines.
type ParallelProcessor struct {
	NumWorkers int
}

// NewParallelProcessor uses runtime.NumCPU workers when numWorkers <= 0.
func NewParallelProcessor(numWorkers int) *ParallelProcessor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &ParallelProcessor{NumWorkers: numWorkers}
}

type job[T any] struct {
	index int
	item  T
}

// ProcessBatch applies workFunc to every item and returns the results in
// input order.
func ProcessBatch[T, R any](pp *ParallelProcessor, items []T, workFunc func(T) R, progressName string) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	tracker := NewProgressTracker(int64(len(items)), progressName)
	jobs := make(chan job[T], len(items))
	var wg sync.WaitGroup

	numWorkers := runtime.NumCPU()
	if pp != nil && pp.NumWorkers > 0 {
		numWorkers = pp.NumWorkers
	}
	workers := min(numWorkers, len(items))
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each index is written by exactly one worker.
				results[j.index] = workFunc(j.item)
				tracker.Increment()
			}
		}()
	}

	for i, item := range items {
		jobs <- job[T]{index: i, item: item}
	}
	close(jobs)
	wg.Wait()

	processed, total, percent := tracker.GetProgress()
	slog.Debug("batch complete",
		"name", progressName,
		"processed", processed,
		"total", total,
		"percent", percent,
		"elapsed", time.Since(tracker.StartTime))
	return results
}
