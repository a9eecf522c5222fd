package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"double/internal/config"
	dberrors "double/internal/errors"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		Models: map[string]config.ModelConfig{
			"deepseek": {
				Enabled:      true,
				APIKey:       "test-key",
				DefaultModel: "deepseek-chat",
				BaseURL:      baseURL,
			},
			"disabled": {
				Enabled:      false,
				APIKey:       "k",
				DefaultModel: "m",
				BaseURL:      baseURL,
			},
			"keyless": {
				Enabled:      true,
				DefaultModel: "m",
				BaseURL:      baseURL,
			},
		},
		DefaultModel: "deepseek",
	}
}

func TestNewRejectsUnconfiguredModels(t *testing.T) {
	t.Parallel()

	cfg := testConfig("http://example.invalid")
	for _, model := range []string{"unknown", "disabled", "keyless"} {
		if _, err := New(cfg, model); !dberrors.IsNotConfigured(err) {
			t.Fatalf("model %q: expected ConfigurationError, got %v", model, err)
		}
	}
}

func TestNewDefaultsToConfiguredModel(t *testing.T) {
	t.Parallel()

	client, err := New(testConfig("http://example.invalid"), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.Provider() != "deepseek" {
		t.Fatalf("expected default provider deepseek, got %s", client.Provider())
	}
	if client.Model() != "deepseek-chat" {
		t.Fatalf("expected model deepseek-chat, got %s", client.Model())
	}
}

func TestChatStreamsDeltas(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected Authorization header, got %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["stream"] != true {
			t.Errorf("expected stream=true, got %v", payload["stream"])
		}
		if payload["model"] != "deepseek-chat" {
			t.Errorf("unexpected model %v", payload["model"])
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		// Split one record mid-JSON across two flushes to exercise the
		// carried tail.
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\"")
		flusher.Flush()
		fmt.Fprint(w, ":{\"content\":\"Hello\"}}]}\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
		flusher.Flush()
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), "deepseek")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var deltas []string
	full, err := client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, func(delta, _ string) {
		deltas = append(deltas, delta)
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if full != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", full)
	}
	if len(deltas) != 2 || deltas[0] != "Hello" || deltas[1] != " world" {
		t.Fatalf("unexpected deltas: %v", deltas)
	}
}

func TestChatUpstreamHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad key"}`)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), "deepseek")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	status, ok := dberrors.IsUpstreamHTTP(err)
	if !ok {
		t.Fatalf("expected UpstreamHTTPError, got %v", err)
	}
	if status != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", status)
	}
}

func TestChatTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client, err := New(testConfig(server.URL), "deepseek")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = client.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if !dberrors.IsTransport(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestChatHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n")
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), "deepseek")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}}, nil); err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestValidateKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi!\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), "deepseek")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ok, detail := client.ValidateKey(context.Background())
	if !ok {
		t.Fatalf("expected valid key, got %q", detail)
	}
}

func TestValidateKeyReportsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL), "deepseek")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ok, detail := client.ValidateKey(context.Background())
	if ok || detail == "" {
		t.Fatalf("expected invalid key with detail, got ok=%v detail=%q", ok, detail)
	}
}
