// Package batch implements the batch grading runner: ordered work items
// driven through per-item grading calls, with the full task snapshot
// persisted after every item so a crash never loses prior progress.
package batch

import (
	"time"

	"double/internal/grading"
)

// ItemStatus is the monotonic per-item state: pending -> completed|failed.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemCompleted ItemStatus = "completed"
	ItemFailed    ItemStatus = "failed"
)

// TaskStatus is the aggregate state; once it leaves pending it never
// returns.
type TaskStatus string

const (
	TaskPending             TaskStatus = "pending"
	TaskProcessing          TaskStatus = "processing"
	TaskCompleted           TaskStatus = "completed"
	TaskCompletedWithErrors TaskStatus = "completed_with_errors"
)

// Composition is one gradable input handed to Create.
type Composition struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Item is one work item inside a task.
type Item struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Text   string          `json:"text"`
	Status ItemStatus      `json:"status"`
	Result *grading.Result `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// Task is the persisted batch record. Completed+Failed <= Total holds at all
// times.
type Task struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"studentId,omitempty"`
	Items       []Item     `json:"compositions"`
	Status      TaskStatus `json:"status"`
	Total       int        `json:"total"`
	Completed   int        `json:"completed"`
	Failed      int        `json:"failed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Progress is one runner progress event.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Title   string `json:"title"`
	Status  string `json:"status"` // processing | failed
	Error   string `json:"error,omitempty"`
}

// ProgressFunc receives progress events on the runner goroutine.
type ProgressFunc func(Progress)
