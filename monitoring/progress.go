package monitoring

import (
	"log"
	"sync"
	"time"
)

// A ProgressBar follows the trials of an analysis run. It implements
// analysis.ProgressTracker.
type ProgressBar struct {
	id    string
	name  string
	start time.Time
	total uint64

	lock       sync.Mutex
	inProgress uint64
	finished   uint64
}

func newProgressBar(id, name string, total uint64) *ProgressBar {
	return &ProgressBar{
		id:    id,
		name:  name,
		start: time.Now(),
		total: total,
	}
}

// IncrementInProgress marks trials as started.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.inProgress += amount
}

// MoveInProgressToFinished marks started trials as finished.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if amount > b.inProgress {
		log.Panicf("progress bar %s: finishing %d trials, but only %d started",
			b.name, amount, b.inProgress)
	}

	b.inProgress -= amount
	b.finished += amount
}

// progressReport is the state of a bar as shown by /api/progress.
type progressReport struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
	Percent    float64   `json:"percent"`

	// Remaining extrapolates the time per finished trial to the trials left.
	// It is empty until the first trial finishes.
	Remaining string `json:"remaining,omitempty"`
}

func (b *ProgressBar) report(now time.Time) progressReport {
	b.lock.Lock()
	defer b.lock.Unlock()

	r := progressReport{
		ID:         b.id,
		Name:       b.name,
		StartTime:  b.start,
		Total:      b.total,
		Finished:   b.finished,
		InProgress: b.inProgress,
	}

	if b.total == 0 {
		return r
	}

	r.Percent = 100 * float64(b.finished) / float64(b.total)

	if b.finished > 0 && b.finished < b.total {
		perTrial := now.Sub(b.start) / time.Duration(b.finished)
		left := perTrial * time.Duration(b.total-b.finished)
		r.Remaining = left.Round(time.Millisecond).String()
	}

	return r
}
