// Package session implements the durable conversation store: one directory
// per session holding a metadata document and an append-only JSONL message
// log, plus a global index summarizing all sessions.
package session

import "time"

// Metadata is the mutable per-session record. The same shape is used for
// entries of the global index.
type Metadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
	Model        string    `json:"model"`
}

// Attachment references an uploaded file by name and path; content is never
// stored in the log.
type Attachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Message is one appended turn. Messages are never edited or reordered; log
// order is the ordering authority.
type Message struct {
	ID          string       `json:"id"`
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Session is metadata merged with the fully materialized message list.
type Session struct {
	Metadata
	Messages []Message `json:"messages"`
}

// SearchResult identifies one message matching a content search.
type SearchResult struct {
	SessionID    string    `json:"sessionId"`
	SessionTitle string    `json:"sessionTitle"`
	MessageID    string    `json:"messageId"`
	Content      string    `json:"content"`
	Role         string    `json:"role"`
	Timestamp    time.Time `json:"timestamp"`
}

type index struct {
	Sessions []Metadata `json:"sessions"`
}
