package llm

import (
	"encoding/json"
	"strings"
)

// Aggregator turns a sequence of raw byte chunks from a streaming response
// into ordered text deltas plus a final concatenated string.
//
// Chunk boundaries are arbitrary: a logical "data:" record may be split
// across two chunks, so the unterminated tail of each chunk is carried over
// and prepended to the next one before splitting. Records that still fail to
// parse after that are dropped; a broken record must not kill the stream.
type Aggregator struct {
	onDelta StreamFunc
	tail    string
	full    strings.Builder
	done    bool
}

// NewAggregator builds an aggregator delivering deltas to onDelta, which may
// be nil when only the final text is wanted.
func NewAggregator(onDelta StreamFunc) *Aggregator {
	return &Aggregator{onDelta: onDelta}
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Feed consumes one raw chunk of the response body.
func (a *Aggregator) Feed(chunk []byte) {
	if a.done || len(chunk) == 0 {
		return
	}

	buf := a.tail + string(chunk)
	lines := strings.Split(buf, "\n")
	// The final element is either "" (chunk ended on a newline) or an
	// incomplete record; hold it back for the next chunk either way.
	a.tail = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		a.consume(line)
		if a.done {
			return
		}
	}
}

func (a *Aggregator) consume(line string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "data:") {
		return
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == "" {
		return
	}
	if payload == "[DONE]" {
		a.done = true
		return
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// Malformed record, not fatal.
		return
	}
	if len(chunk.Choices) == 0 {
		return
	}
	if text := chunk.Choices[0].Delta.Content; text != "" {
		a.full.WriteString(text)
		if a.onDelta != nil {
			a.onDelta(text, a.full.String())
		}
	}
}

// Finish flushes any pending tail (a final record without a trailing
// newline) and returns the full aggregated text.
func (a *Aggregator) Finish() string {
	if tail := a.tail; tail != "" && !a.done {
		a.tail = ""
		a.consume(tail)
	}
	return a.full.String()
}

// Done reports whether the terminal sentinel has been seen.
func (a *Aggregator) Done() bool {
	return a.done
}
