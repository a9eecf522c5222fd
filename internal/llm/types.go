// Package llm implements the model gateway: it maps a logical chat request
// onto an OpenAI-compatible provider wire format and aggregates the streamed
// response into text deltas.
package llm

// Message is one role/content pair of a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles accepted on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StreamFunc receives each non-empty text delta together with the cumulative
// text aggregated so far. Callbacks arrive in stream order on the calling
// goroutine.
type StreamFunc func(delta, full string)
