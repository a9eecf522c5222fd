// Package template manages the reusable comment templates shown alongside
// grading results.
package template

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	dberrors "double/internal/errors"
	id "double/internal/utils/id"
)

// Template is one canned comment with usage tracking.
type Template struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Tags       []string   `json:"tags"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UsageCount int        `json:"usageCount,omitempty"`
}

// defaults seeds comments.json on first access, keyed by grade level.
var defaults = map[string][]Template{
	"primary": {
		{ID: "p1", Text: "文章写得真棒！字迹工整，语句通顺，继续加油！", Tags: []string{"鼓励", "通用"}},
		{ID: "p2", Text: "你的进步很大，如果能再多读几遍修改一下会更好。", Tags: []string{"鼓励", "修改"}},
		{ID: "p3", Text: "开头很吸引人，结尾再具体一点就更完美了。", Tags: []string{"结构", "建议"}},
	},
	"middle": {
		{ID: "m1", Text: "立意深刻，内容充实，是一篇优秀的作文。", Tags: []string{"表扬", "优秀"}},
		{ID: "m2", Text: "语言流畅，但部分段落过渡可以更自然。", Tags: []string{"结构", "建议"}},
		{ID: "m3", Text: "选材新颖，如果能加入更多细节描写会更好。", Tags: []string{"内容", "建议"}},
	},
	"high": {
		{ID: "h1", Text: "思想深刻，论证充分，展现了较强的思辨能力。", Tags: []string{"表扬", "思辨"}},
		{ID: "h2", Text: "文采斐然，但部分论点可以更深入展开。", Tags: []string{"文采", "建议"}},
		{ID: "h3", Text: "结构严谨，逻辑清晰，是一篇高质量的考场作文。", Tags: []string{"结构", "优秀"}},
	},
}

// Store persists templates as one whole-document comments.json.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore opens the template store under dataDir/templates, seeding the
// defaults when the document does not exist yet.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "templates")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dberrors.NewPersistenceError("mkdir", dir, err)
	}
	s := &Store{path: filepath.Join(dir, "comments.json")}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := s.write(defaults); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) read() (map[string][]Template, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	templates := map[string][]Template{}
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (s *Store) write(templates map[string][]Template) error {
	data, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return dberrors.NewPersistenceError("write", s.path, err)
	}
	return nil
}

// All returns every template keyed by grade level.
func (s *Store) All() (map[string][]Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Add appends a new template under the given grade level.
func (s *Store) Add(grade, text string, tags []string) (Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.read()
	if err != nil {
		return Template{}, err
	}
	now := time.Now().UTC()
	tpl := Template{
		ID:        id.NewTemplateID(),
		Text:      text,
		Tags:      tags,
		CreatedAt: &now,
	}
	templates[grade] = append(templates[grade], tpl)
	if err := s.write(templates); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// Delete removes a template; missing grade or id is a no-op.
func (s *Store) Delete(grade, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.read()
	if err != nil {
		return err
	}
	list, ok := templates[grade]
	if !ok {
		return nil
	}
	kept := list[:0]
	for _, tpl := range list {
		if tpl.ID != templateID {
			kept = append(kept, tpl)
		}
	}
	templates[grade] = kept
	return s.write(templates)
}

// IncrementUsage bumps a template's usage counter; missing templates are a
// no-op.
func (s *Store) IncrementUsage(grade, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.read()
	if err != nil {
		return err
	}
	for i, tpl := range templates[grade] {
		if tpl.ID == templateID {
			templates[grade][i].UsageCount++
			return s.write(templates)
		}
	}
	return nil
}
