// internal/scraper/scheduler.go
package scraper

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// MaxWorkers caps the parallelism against the portal
const MaxWorkers = 5

// DefaultWorkers returns min(NumCPU, MaxWorkers)
func DefaultWorkers() int {
	if n := runtime.NumCPU(); n < MaxWorkers {
		return n
	}
	return MaxWorkers
}

// Result is the outcome of one pool task
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Progress is a snapshot of a running phase
type Progress struct {
	Phase     string    `json:"phase"`
	Done      int       `json:"done"`
	Failed    int       `json:"failed"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"started_at"`
}

// Percent returns the completed share in percent
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Done) * 100 / float64(p.Total)
}

// ProgressFunc observes pool progress after every completed task
type ProgressFunc func(Progress)

// RunPool runs fn over items with at most workers concurrent tasks and
// delivers results in completion order. A task error or panic becomes
// that task's Result; siblings keep running. Once ctx is done no new
// tasks are started.
func RunPool[T, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) (R, error), progress ProgressFunc) <-chan Result[R] {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	results := make(chan Result[R], len(items))

	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(workers)

		var done, failed atomic.Int64
		started := time.Now()

		for i, item := range items {
			if ctx.Err() != nil {
				break
			}
			i, item := i, item
			g.Go(func() error {
				res := runTask(ctx, i, item, fn)
				if res.Err != nil {
					failed.Add(1)
				}
				n := done.Add(1)
				results <- res
				if progress != nil {
					progress(Progress{
						Done:      int(n),
						Failed:    int(failed.Load()),
						Total:     len(items),
						StartedAt: started,
					})
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	return results
}

func runTask[T, R any](ctx context.Context, i int, item T, fn func(context.Context, T) (R, error)) (res Result[R]) {
	res.Index = i
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("task %d panicked: %v", i, r)
		}
	}()
	res.Value, res.Err = fn(ctx, item)
	return res
}

// ProgressTracker keeps the latest progress of the running phase and logs
// it at a fixed cadence.
type ProgressTracker struct {
	mu     sync.RWMutex
	last   Progress
	every  int
	logger logrus.FieldLogger
}

// NewProgressTracker logs every n completed tasks and at completion
func NewProgressTracker(every int, logger logrus.FieldLogger) *ProgressTracker {
	if every <= 0 {
		every = 5
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProgressTracker{every: every, logger: logger}
}

// Observe returns a ProgressFunc for the named phase
func (t *ProgressTracker) Observe(phase string) ProgressFunc {
	return func(p Progress) {
		p.Phase = phase
		t.mu.Lock()
		if p.Done >= t.last.Done || t.last.Phase != phase {
			t.last = p
		}
		t.mu.Unlock()

		if p.Done%t.every == 0 || p.Done == p.Total {
			t.logger.WithFields(logrus.Fields{
				"phase":   phase,
				"done":    p.Done,
				"total":   p.Total,
				"failed":  p.Failed,
				"percent": fmt.Sprintf("%.1f", p.Percent()),
				"elapsed": time.Since(p.StartedAt).Round(time.Second),
			}).Info("progress")
		}
	}
}

// Snapshot returns the latest progress
func (t *ProgressTracker) Snapshot() Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}
