package batch

import (
	"context"
	"fmt"
	"math"
	"time"

	"double/internal/grading"
	"double/internal/utils"
)

// GradeFunc grades one composition. It is the only suspension point of the
// per-item loop besides the snapshot write.
type GradeFunc func(ctx context.Context, text string, opts grading.Options) (grading.Result, error)

// StatsUpdater receives the batch's mean score for the owning student. It is
// called at most once per completed batch.
type StatsUpdater interface {
	UpdateStats(studentID string, score int) error
}

// Runner drives a persisted batch task item by item. Items run strictly in
// order, one at a time; item N+1 never starts before item N's snapshot write
// completed.
type Runner struct {
	store  *Store
	grade  GradeFunc
	stats  StatsUpdater
	logger *utils.Logger
}

// NewRunner builds a runner. stats may be nil when no student statistics are
// tracked.
func NewRunner(store *Store, grade GradeFunc, stats StatsUpdater) *Runner {
	return &Runner{
		store:  store,
		grade:  grade,
		stats:  stats,
		logger: utils.NewComponentLogger("BatchRunner"),
	}
}

// Execute processes the batch with the given grading options. A single
// item's failure is captured in the task and never aborts the remaining
// items; only a missing batch snapshot (or cancellation) is fatal.
func (r *Runner) Execute(ctx context.Context, batchID string, opts grading.Options, onProgress ProgressFunc) (*Task, error) {
	task, err := r.store.Get(batchID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("batch %s not found", batchID)
	}

	task.Status = TaskProcessing

	for i := range task.Items {
		if err := ctx.Err(); err != nil {
			// Persist what we have; completed items stay completed.
			if saveErr := r.store.Save(task); saveErr != nil {
				r.logger.Error("Failed to persist batch %s on cancel: %v", task.ID, saveErr)
			}
			return task, err
		}

		item := &task.Items[i]
		if onProgress != nil {
			onProgress(Progress{
				Current: i + 1,
				Total:   task.Total,
				Title:   item.Title,
				Status:  "processing",
			})
		}

		result, err := r.grade(ctx, item.Text, opts)
		if err != nil {
			item.Status = ItemFailed
			item.Error = err.Error()
			task.Failed++
			r.logger.Warn("Batch %s item %d (%q) failed: %v", task.ID, i+1, item.Title, err)
			if onProgress != nil {
				onProgress(Progress{
					Current: i + 1,
					Total:   task.Total,
					Title:   item.Title,
					Status:  "failed",
					Error:   err.Error(),
				})
			}
		} else {
			item.Status = ItemCompleted
			item.Result = &result
			task.Completed++
			if err := r.store.SaveGradingResult(task.ID, item.Title, result); err != nil {
				r.logger.Error("Failed to save grading artifact for %q: %v", item.Title, err)
			}
		}

		// Snapshot after every item so a crash loses at most the in-flight
		// item's result.
		if err := r.store.Save(task); err != nil {
			return task, err
		}
	}

	if task.Failed > 0 {
		task.Status = TaskCompletedWithErrors
	} else {
		task.Status = TaskCompleted
	}
	now := time.Now().UTC()
	task.CompletedAt = &now
	if err := r.store.Save(task); err != nil {
		return task, err
	}

	if r.stats != nil && task.StudentID != "" && task.Completed > 0 {
		if err := r.stats.UpdateStats(task.StudentID, meanScore(task)); err != nil {
			r.logger.Error("Failed to update stats for student %s: %v", task.StudentID, err)
		}
	}

	r.logger.Info("Batch %s finished: %d completed, %d failed", task.ID, task.Completed, task.Failed)
	return task, nil
}

func meanScore(task *Task) int {
	sum := 0.0
	for _, item := range task.Items {
		if item.Status == ItemCompleted && item.Result != nil {
			sum += item.Result.Evaluation.Score
		}
	}
	return int(math.Round(sum / float64(task.Completed)))
}
