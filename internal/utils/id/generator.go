// Package id generates the time-derived identifiers used for sessions,
// messages, batch tasks and student profiles.
//
// Identifiers carry a date prefix so that directory listings of the data
// directory sort roughly chronologically, followed by a random component
// taken from a UUID so that two identifiers minted in the same instant never
// collide.
package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func random(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// NewSessionID generates a session identifier, e.g. "20260830-a1b2c3".
func NewSessionID() string {
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102"), random(6))
}

// NewMessageID generates a log-local message identifier.
func NewMessageID() string {
	return fmt.Sprintf("msg-%d-%s", time.Now().UnixMilli(), random(4))
}

// NewBatchID generates a batch task identifier.
func NewBatchID() string {
	return fmt.Sprintf("batch-%d-%s", time.Now().UnixMilli(), random(4))
}

// NewStudentID generates a student profile identifier.
func NewStudentID() string {
	return fmt.Sprintf("stu-%d-%s", time.Now().UnixMilli(), random(4))
}

// NewTemplateID generates a comment template identifier.
func NewTemplateID() string {
	return fmt.Sprintf("tpl-%d-%s", time.Now().UnixMilli(), random(4))
}

// NewRequestID generates an identifier used to correlate gateway request
// logs.
func NewRequestID() string {
	return fmt.Sprintf("req-%s", random(8))
}
