package grading

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Source tags how a Result was obtained.
type Source string

const (
	// SourceStructured means the embedded JSON object was located and parsed.
	SourceStructured Source = "structured"
	// SourceFallback means no parseable object was found and the fixed
	// fallback evaluation was substituted, carrying the raw reply as comment.
	SourceFallback Source = "fallback"
)

// TextIssue is one typo or broken sentence flagged by the model.
type TextIssue struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Suggestion string `json:"suggestion"`
	Position   int    `json:"position"`
}

// Evaluation is the structured grading payload.
type Evaluation struct {
	Score      float64     `json:"score"`
	MaxScore   float64     `json:"maxScore"`
	Errors     []TextIssue `json:"errors"`
	Strengths  []string    `json:"strengths"`
	Weaknesses []string    `json:"weaknesses"`
	Comment    string      `json:"comment"`
}

// Result is the tagged outcome of parsing a model reply. Consumers branch on
// Source instead of sniffing field presence.
type Result struct {
	Source     Source     `json:"source"`
	Evaluation Evaluation `json:"evaluation"`
	Raw        string     `json:"raw,omitempty"`
}

func fallbackResult(raw string) Result {
	return Result{
		Source: SourceFallback,
		Evaluation: Evaluation{
			Score:      75,
			MaxScore:   100,
			Errors:     []TextIssue{},
			Strengths:  []string{"内容完整"},
			Weaknesses: []string{"格式解析失败"},
			Comment:    raw,
		},
		Raw: raw,
	}
}

// ParseResult locates the JSON object embedded in the model reply and
// decodes it, repairing near-JSON output when necessary. Grading must never
// hard-fail on format drift, so an unparseable reply degrades to the fixed
// fallback evaluation instead of an error.
func ParseResult(reply string) Result {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return fallbackResult(reply)
	}
	blob := reply[start : end+1]

	var eval Evaluation
	if err := json.Unmarshal([]byte(blob), &eval); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(blob)
		if repairErr != nil {
			return fallbackResult(reply)
		}
		if err := json.Unmarshal([]byte(repaired), &eval); err != nil {
			return fallbackResult(reply)
		}
	}

	if eval.Errors == nil {
		eval.Errors = []TextIssue{}
	}
	return Result{Source: SourceStructured, Evaluation: eval}
}
