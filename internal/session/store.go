package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	dberrors "double/internal/errors"
	"double/internal/utils"
	id "double/internal/utils/id"
)

// Store owns session metadata, message logs and the global index. It is safe
// for concurrent use within one process; it provides no cross-process
// locking.
type Store struct {
	baseDir string
	logger  *utils.Logger
	mu      sync.Mutex
}

// NewStore opens (creating if necessary) the session store under
// dataDir/sessions.
func NewStore(dataDir string) (*Store, error) {
	baseDir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, dberrors.NewPersistenceError("mkdir", baseDir, err)
	}
	s := &Store{
		baseDir: baseDir,
		logger:  utils.NewComponentLogger("SessionStore"),
	}
	if _, err := os.Stat(s.indexPath()); os.IsNotExist(err) {
		if err := s.writeIndex(index{Sessions: []Metadata{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.baseDir, "index.json")
}

func (s *Store) sessionDir(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID)
}

func (s *Store) metadataPath(sessionID string) string {
	return filepath.Join(s.sessionDir(sessionID), "metadata.json")
}

func (s *Store) logPath(sessionID string) string {
	return filepath.Join(s.sessionDir(sessionID), "messages.jsonl")
}

func (s *Store) readIndex() index {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		return index{Sessions: []Metadata{}}
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		s.logger.Error("Failed to decode index: %v", err)
		return index{Sessions: []Metadata{}}
	}
	if idx.Sessions == nil {
		idx.Sessions = []Metadata{}
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

func (s *Store) writeMetadata(meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	path := s.metadataPath(meta.ID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return dberrors.NewPersistenceError("write", path, err)
	}
	return nil
}

func (s *Store) readMetadata(sessionID string) (*Metadata, error) {
	data, err := os.ReadFile(s.metadataPath(sessionID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", sessionID, err)
	}
	return &meta, nil
}

// Create allocates a fresh session with an empty log and prepends its
// summary to the global index, so the index stays most-recent-first by
// construction.
func (s *Store) Create(title, model string) (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	meta := Metadata{
		ID:        id.NewSessionID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Model:     model,
	}

	dir := s.sessionDir(meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Metadata{}, dberrors.NewPersistenceError("mkdir", dir, err)
	}
	if err := s.writeMetadata(meta); err != nil {
		return Metadata{}, err
	}
	if err := os.WriteFile(s.logPath(meta.ID), nil, 0644); err != nil {
		return Metadata{}, dberrors.NewPersistenceError("write", s.logPath(meta.ID), err)
	}

	idx := s.readIndex()
	idx.Sessions = append([]Metadata{meta}, idx.Sessions...)
	if err := s.writeIndex(idx); err != nil {
		return Metadata{}, err
	}

	s.logger.Info("Created session %s (%q)", meta.ID, title)
	return meta, nil
}

// Delete removes the session's storage unit and its index entry. Deleting a
// session that does not exist is a no-op.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.sessionDir(sessionID)); err != nil {
		return dberrors.NewPersistenceError("remove", s.sessionDir(sessionID), err)
	}

	idx := s.readIndex()
	kept := idx.Sessions[:0]
	for _, meta := range idx.Sessions {
		if meta.ID != sessionID {
			kept = append(kept, meta)
		}
	}
	idx.Sessions = kept
	return s.writeIndex(idx)
}

// Rename updates the title in the metadata record and the matching index
// entry. Renaming a missing session is a no-op.
func (s *Store) Rename(sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMetadata(sessionID)
	if err != nil {
		return err
	}
	if meta == nil {
		return nil
	}

	meta.Title = title
	meta.UpdatedAt = time.Now().UTC()
	if err := s.writeMetadata(*meta); err != nil {
		return err
	}
	return s.updateIndexEntry(*meta)
}

// updateIndexEntry replaces the index entry in place; it deliberately does
// not relocate the entry, so index order stays creation order.
func (s *Store) updateIndexEntry(meta Metadata) error {
	idx := s.readIndex()
	for i := range idx.Sessions {
		if idx.Sessions[i].ID == meta.ID {
			idx.Sessions[i] = meta
			return s.writeIndex(idx)
		}
	}
	return nil
}

// Get returns the session with its full in-order message list, or nil when
// no such session exists.
func (s *Store) Get(sessionID string) (*Session, error) {
	meta, err := s.readMetadata(sessionID)
	if err != nil || meta == nil {
		return nil, err
	}

	messages, err := s.readLog(sessionID)
	if err != nil {
		return nil, err
	}
	return &Session{Metadata: *meta, Messages: messages}, nil
}

func (s *Store) readLog(sessionID string) ([]Message, error) {
	data, err := os.ReadFile(s.logPath(sessionID))
	if os.IsNotExist(err) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	messages := []Message{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			s.logger.Error("Skipping corrupt log record in %s: %v", sessionID, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// All returns the current index contents, most-recent-first by creation.
func (s *Store) All() ([]Metadata, error) {
	return s.readIndex().Sessions, nil
}

// AddMessage assigns the message an id and timestamp, appends it to the
// session's log, then refreshes messageCount and updatedAt in metadata and
// the index entry. The log append and the metadata write are two separate
// durable writes; the count is recomputed from the log so the log stays the
// source of truth if a crash lands between them.
func (s *Store) AddMessage(sessionID string, msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMetadata(sessionID)
	if err != nil {
		return Message{}, err
	}
	if meta == nil {
		return Message{}, fmt.Errorf("session %s not found", sessionID)
	}

	msg.ID = id.NewMessageID()
	msg.Timestamp = time.Now().UTC()

	record, err := json.Marshal(msg)
	if err != nil {
		return Message{}, err
	}
	f, err := os.OpenFile(s.logPath(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return Message{}, dberrors.NewPersistenceError("open", s.logPath(sessionID), err)
	}
	if _, err := f.Write(append(record, '\n')); err != nil {
		_ = f.Close()
		return Message{}, dberrors.NewPersistenceError("append", s.logPath(sessionID), err)
	}
	if err := f.Close(); err != nil {
		return Message{}, dberrors.NewPersistenceError("close", s.logPath(sessionID), err)
	}

	count, err := s.countLog(sessionID)
	if err != nil {
		return Message{}, err
	}
	meta.MessageCount = count
	meta.UpdatedAt = msg.Timestamp
	if err := s.writeMetadata(*meta); err != nil {
		return Message{}, err
	}
	if err := s.updateIndexEntry(*meta); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (s *Store) countLog(sessionID string) (int, error) {
	data, err := os.ReadFile(s.logPath(sessionID))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}

// Recount is the repair path: it recomputes messageCount from the log and
// rewrites metadata and index entry when they drifted (e.g. after a crash
// between the log append and the metadata write).
func (s *Store) Recount(sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMetadata(sessionID)
	if err != nil {
		return 0, err
	}
	if meta == nil {
		return 0, nil
	}

	count, err := s.countLog(sessionID)
	if err != nil {
		return 0, err
	}
	if count == meta.MessageCount {
		return count, nil
	}

	s.logger.Warn("Session %s count drifted: metadata=%d log=%d", sessionID, meta.MessageCount, count)
	meta.MessageCount = count
	if err := s.writeMetadata(*meta); err != nil {
		return 0, err
	}
	if err := s.updateIndexEntry(*meta); err != nil {
		return 0, err
	}
	return count, nil
}

// Search performs a case-insensitive substring match over every message of
// every session. Full scan; fine for local single-user volumes.
func (s *Store) Search(query string) ([]SearchResult, error) {
	needle := strings.ToLower(query)
	results := []SearchResult{}

	for _, summary := range s.readIndex().Sessions {
		messages, err := s.readLog(summary.ID)
		if err != nil {
			s.logger.Error("Skipping session %s during search: %v", summary.ID, err)
			continue
		}
		for _, msg := range messages {
			if strings.Contains(strings.ToLower(msg.Content), needle) {
				results = append(results, SearchResult{
					SessionID:    summary.ID,
					SessionTitle: summary.Title,
					MessageID:    msg.ID,
					Content:      msg.Content,
					Role:         msg.Role,
					Timestamp:    msg.Timestamp,
				})
			}
		}
	}
	return results, nil
}
