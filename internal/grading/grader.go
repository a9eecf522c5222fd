package grading

import (
	"context"
	"fmt"

	"double/internal/llm"
	"double/internal/utils"
)

// ChatClient is the slice of the model gateway the grader needs.
type ChatClient interface {
	Chat(ctx context.Context, messages []llm.Message, onDelta llm.StreamFunc) (string, error)
}

// Grader grades one composition per call through the model gateway.
type Grader struct {
	client ChatClient
	logger *utils.Logger
}

// NewGrader builds a grader on top of an already-constructed gateway.
func NewGrader(client ChatClient) *Grader {
	return &Grader{
		client: client,
		logger: utils.NewComponentLogger("Grader"),
	}
}

// Grade builds the grading prompt, runs one chat exchange and parses the
// reply. Only the gateway call can fail; parsing always yields a Result.
func (g *Grader) Grade(ctx context.Context, text string, opts Options) (Result, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a helpful assistant."},
		{Role: llm.RoleUser, Content: BuildPrompt(text, opts)},
	}

	reply, err := g.client.Chat(ctx, messages, nil)
	if err != nil {
		return Result{}, fmt.Errorf("AI grading failed: %w", err)
	}

	result := ParseResult(reply)
	if result.Source == SourceFallback {
		g.logger.Warn("Grading reply did not contain parseable JSON, using fallback")
	}
	return result, nil
}
