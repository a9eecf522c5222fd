// Package student manages student profiles and their grading statistics.
package student

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	dberrors "double/internal/errors"
	"double/internal/utils"
	id "double/internal/utils/id"
)

// Settings hold per-student grading preferences.
type Settings struct {
	ScoreStandard string `json:"compositionScoreStandard"`
	CommentStyle  string `json:"commentStyle"`
}

// Stats track the student's grading history. AvgScore is a running average
// kept to one decimal.
type Stats struct {
	CompositionCount int      `json:"compositionCount"`
	AvgScore         float64  `json:"avgScore"`
	WeakPoints       []string `json:"weakPoints"`
}

// Student is one profile record.
type Student struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Grade         string    `json:"grade"`
	School        string    `json:"school"`
	ParentContact string    `json:"parentContact"`
	CreatedAt     time.Time `json:"createdAt"`
	Settings      Settings  `json:"settings"`
	Stats         Stats     `json:"stats"`
}

type index struct {
	Students []Student `json:"students"`
}

// Store persists profiles under dataDir/students: an index document plus one
// profile.json per student directory.
type Store struct {
	baseDir string
	logger  *utils.Logger
	mu      sync.Mutex
}

// NewStore opens the student store.
func NewStore(dataDir string) (*Store, error) {
	baseDir := filepath.Join(dataDir, "students")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, dberrors.NewPersistenceError("mkdir", baseDir, err)
	}
	s := &Store{
		baseDir: baseDir,
		logger:  utils.NewComponentLogger("StudentStore"),
	}
	if _, err := os.Stat(s.indexPath()); os.IsNotExist(err) {
		if err := s.writeIndex(index{Students: []Student{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.baseDir, "index.json")
}

func (s *Store) profilePath(studentID string) string {
	return filepath.Join(s.baseDir, studentID, "profile.json")
}

func (s *Store) readIndex() index {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return index{Students: []Student{}}
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		s.logger.Error("Failed to decode student index: %v", err)
		return index{Students: []Student{}}
	}
	if idx.Students == nil {
		idx.Students = []Student{}
	}
	return idx
}

func (s *Store) writeIndex(idx index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.indexPath(), data, 0644); err != nil {
		return dberrors.NewPersistenceError("write", s.indexPath(), err)
	}
	return nil
}

func (s *Store) writeProfile(st Student) error {
	dir := filepath.Join(s.baseDir, st.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return dberrors.NewPersistenceError("mkdir", dir, err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.profilePath(st.ID), data, 0644); err != nil {
		return dberrors.NewPersistenceError("write", s.profilePath(st.ID), err)
	}
	return nil
}

// All returns every profile in the index.
func (s *Store) All() ([]Student, error) {
	return s.readIndex().Students, nil
}

// Get returns the student, or nil when no such profile exists.
func (s *Store) Get(studentID string) (*Student, error) {
	for _, st := range s.readIndex().Students {
		if st.ID == studentID {
			return &st, nil
		}
	}
	return nil, nil
}

// Create registers a new profile with zeroed stats.
func (s *Store) Create(st Student) (Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.ID = id.NewStudentID()
	st.CreatedAt = time.Now().UTC()
	if st.Settings.ScoreStandard == "" {
		st.Settings.ScoreStandard = "primary"
	}
	if st.Settings.CommentStyle == "" {
		st.Settings.CommentStyle = "encouraging"
	}
	st.Stats = Stats{WeakPoints: []string{}}

	idx := s.readIndex()
	idx.Students = append(idx.Students, st)
	if err := s.writeIndex(idx); err != nil {
		return Student{}, err
	}
	if err := s.writeProfile(st); err != nil {
		return Student{}, err
	}
	s.logger.Info("Created student %s (%q)", st.ID, st.Name)
	return st, nil
}

// Update replaces the stored record for st.ID in both the index and the
// profile document.
func (s *Store) Update(st Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(st)
}

func (s *Store) update(st Student) error {
	idx := s.readIndex()
	for i := range idx.Students {
		if idx.Students[i].ID == st.ID {
			idx.Students[i] = st
			if err := s.writeIndex(idx); err != nil {
				return err
			}
			return s.writeProfile(st)
		}
	}
	return fmt.Errorf("student %s not found", st.ID)
}

// Delete removes the profile and its directory. Deleting a missing student
// is a no-op.
func (s *Store) Delete(studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.readIndex()
	kept := idx.Students[:0]
	for _, st := range idx.Students {
		if st.ID != studentID {
			kept = append(kept, st)
		}
	}
	idx.Students = kept
	if err := s.writeIndex(idx); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, studentID)); err != nil {
		return dberrors.NewPersistenceError("remove", filepath.Join(s.baseDir, studentID), err)
	}
	return nil
}

// UpdateStats folds one composition score into the running average. Unknown
// students are a no-op (nil stats).
func (s *Store) UpdateStats(studentID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *Student
	idx := s.readIndex()
	for i := range idx.Students {
		if idx.Students[i].ID == studentID {
			target = &idx.Students[i]
			break
		}
	}
	if target == nil {
		s.logger.Warn("UpdateStats for unknown student %s ignored", studentID)
		return nil
	}

	target.Stats.CompositionCount++
	total := target.Stats.AvgScore*float64(target.Stats.CompositionCount-1) + float64(score)
	target.Stats.AvgScore = math.Round(total/float64(target.Stats.CompositionCount)*10) / 10

	if err := s.writeIndex(idx); err != nil {
		return err
	}
	return s.writeProfile(*target)
}
