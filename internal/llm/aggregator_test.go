package llm

import (
	"testing"
)

func feedAll(a *Aggregator, chunks ...string) string {
	for _, c := range chunks {
		a.Feed([]byte(c))
	}
	return a.Finish()
}

func TestAggregatorSingleRecord(t *testing.T) {
	t.Parallel()

	var deltas []string
	agg := NewAggregator(func(delta, full string) {
		deltas = append(deltas, delta)
	})

	full := feedAll(agg, "data: {\"choices\":[{\"delta\":{\"content\":\"He\"}}]}\n")
	if full != "He" {
		t.Fatalf("expected full %q, got %q", "He", full)
	}
	if len(deltas) != 1 || deltas[0] != "He" {
		t.Fatalf("expected one delta %q, got %v", "He", deltas)
	}
}

func TestAggregatorRecordSplitAcrossChunks(t *testing.T) {
	t.Parallel()

	record := "data: {\"choices\":[{\"delta\":{\"content\":\"He\"}}]}\n"

	// Every split point must yield exactly one delta; the unterminated tail
	// of the first chunk has to be carried into the second.
	for cut := 1; cut < len(record); cut++ {
		var deltas []string
		agg := NewAggregator(func(delta, full string) {
			deltas = append(deltas, delta)
		})
		full := feedAll(agg, record[:cut], record[cut:])
		if full != "He" {
			t.Fatalf("cut=%d: expected full %q, got %q", cut, "He", full)
		}
		if len(deltas) != 1 {
			t.Fatalf("cut=%d: expected exactly one delta, got %v", cut, deltas)
		}
	}
}

func TestAggregatorCumulativeText(t *testing.T) {
	t.Parallel()

	var fulls []string
	agg := NewAggregator(func(delta, full string) {
		fulls = append(fulls, full)
	})

	full := feedAll(agg,
		"data: {\"choices\":[{\"delta\":{\"content\":\"你\"}}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"好\"}}]}\n",
		"data: [DONE]\n",
	)
	if full != "你好" {
		t.Fatalf("expected %q, got %q", "你好", full)
	}
	if len(fulls) != 2 || fulls[0] != "你" || fulls[1] != "你好" {
		t.Fatalf("unexpected cumulative sequence: %v", fulls)
	}
}

func TestAggregatorMalformedRecordDropped(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(nil)
	full := feedAll(agg,
		"data: {not json at all\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n",
	)
	if full != "ok" {
		t.Fatalf("malformed record should be dropped, got %q", full)
	}
}

func TestAggregatorMissingDeltaContent(t *testing.T) {
	t.Parallel()

	called := false
	agg := NewAggregator(func(delta, full string) { called = true })
	full := feedAll(agg,
		"data: {\"choices\":[{\"delta\":{}}]}\n",
		"data: {\"choices\":[]}\n",
	)
	if full != "" {
		t.Fatalf("expected empty aggregate, got %q", full)
	}
	if called {
		t.Fatal("empty deltas must not trigger the callback")
	}
}

func TestAggregatorStopsAfterDone(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(nil)
	full := feedAll(agg,
		"data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n",
		"data: [DONE]\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n",
	)
	if full != "a" {
		t.Fatalf("records after [DONE] must be ignored, got %q", full)
	}
	if !agg.Done() {
		t.Fatal("expected Done after sentinel")
	}
}

func TestAggregatorFlushesUnterminatedFinalRecord(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(nil)
	// No trailing newline: Finish must still consume the pending tail.
	full := feedAll(agg, "data: {\"choices\":[{\"delta\":{\"content\":\"tail\"}}]}")
	if full != "tail" {
		t.Fatalf("expected %q, got %q", "tail", full)
	}
}

func TestAggregatorIgnoresNonDataLines(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(nil)
	full := feedAll(agg,
		": keep-alive\n",
		"event: message\n",
		"\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n",
	)
	if full != "x" {
		t.Fatalf("expected %q, got %q", "x", full)
	}
}
