package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	dberrors "double/internal/errors"
	"double/internal/grading"
	"double/internal/utils"
	id "double/internal/utils/id"
)

// Store persists batch tasks: one directory per task holding batch.json
// (overwritten after each item) and a graded/ directory of per-item result
// artifacts.
type Store struct {
	baseDir string
	logger  *utils.Logger
}

// NewStore opens the batch store under dataDir/batches.
func NewStore(dataDir string) (*Store, error) {
	baseDir := filepath.Join(dataDir, "batches")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, dberrors.NewPersistenceError("mkdir", baseDir, err)
	}
	return &Store{
		baseDir: baseDir,
		logger:  utils.NewComponentLogger("BatchStore"),
	}, nil
}

func (s *Store) taskDir(batchID string) string {
	return filepath.Join(s.baseDir, batchID)
}

func (s *Store) taskPath(batchID string) string {
	return filepath.Join(s.taskDir(batchID), "batch.json")
}

// Create builds a task with every item pending and persists it.
func (s *Store) Create(studentID string, compositions []Composition) (*Task, error) {
	task := &Task{
		ID:        id.NewBatchID(),
		StudentID: studentID,
		Status:    TaskPending,
		Total:     len(compositions),
		CreatedAt: time.Now().UTC(),
	}
	for i, comp := range compositions {
		title := comp.Title
		if title == "" {
			title = fmt.Sprintf("作文 %d", i+1)
		}
		task.Items = append(task.Items, Item{
			ID:     fmt.Sprintf("comp-%d", i),
			Title:  title,
			Text:   comp.Text,
			Status: ItemPending,
		})
	}

	if err := os.MkdirAll(filepath.Join(s.taskDir(task.ID), "graded"), 0755); err != nil {
		return nil, dberrors.NewPersistenceError("mkdir", s.taskDir(task.ID), err)
	}
	if err := s.Save(task); err != nil {
		return nil, err
	}
	s.logger.Info("Created batch %s with %d items", task.ID, task.Total)
	return task, nil
}

// Save overwrites the whole task snapshot.
func (s *Store) Save(task *Task) error {
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.taskPath(task.ID), data, 0644); err != nil {
		return dberrors.NewPersistenceError("write", s.taskPath(task.ID), err)
	}
	return nil
}

// Get returns the task snapshot, or nil when no such task exists.
func (s *Store) Get(batchID string) (*Task, error) {
	data, err := os.ReadFile(s.taskPath(batchID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", batchID, err)
	}
	return &task, nil
}

// GetAll lists persisted tasks, newest first, optionally filtered by
// student.
func (s *Store) GetAll(studentID string) ([]Task, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	tasks := []Task{}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "batch-") {
			continue
		}
		task, err := s.Get(entry.Name())
		if err != nil {
			s.logger.Error("Skipping unreadable batch %s: %v", entry.Name(), err)
			continue
		}
		if task == nil {
			continue
		}
		if studentID != "" && task.StudentID != studentID {
			continue
		}
		tasks = append(tasks, *task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// SaveGradingResult writes one item's result as a side artifact under the
// task's graded/ directory.
func (s *Store) SaveGradingResult(batchID, title string, result grading.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	name := sanitizeFileName(title) + "_graded.json"
	path := filepath.Join(s.taskDir(batchID), "graded", name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return dberrors.NewPersistenceError("write", path, err)
	}
	return nil
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
