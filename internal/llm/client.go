package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"double/internal/config"
	dberrors "double/internal/errors"
	"double/internal/httpclient"
	"double/internal/utils"
	id "double/internal/utils/id"
)

// Client speaks the OpenAI-compatible chat completions API for one
// configured provider. A Client is an immutable snapshot of one
// configuration version; build a fresh one after a configuration save.
type Client struct {
	provider   string
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *utils.Logger
}

// New resolves the provider entry for model (the configured default when
// empty) and builds a gateway for it. It fails with a ConfigurationError
// before any network activity when the model is unknown, disabled or has no
// API key.
func New(cfg config.Config, model string) (*Client, error) {
	name, mc, ok := cfg.Model(model)
	if !ok {
		return nil, dberrors.NewConfigurationError(name, "no such model entry")
	}
	if !mc.Enabled {
		return nil, dberrors.NewConfigurationError(name, "disabled")
	}
	if mc.APIKey == "" {
		return nil, dberrors.NewConfigurationError(name, "api key not set")
	}

	logger := utils.NewComponentLogger("ModelGateway")
	return &Client{
		provider:   name,
		model:      mc.DefaultModel,
		apiKey:     mc.APIKey,
		baseURL:    strings.TrimRight(mc.BaseURL, "/"),
		httpClient: httpclient.New(120*time.Second, logger),
		logger:     logger,
	}, nil
}

// Provider returns the configured provider name.
func (c *Client) Provider() string {
	return c.provider
}

// Model returns the upstream model identifier requests are issued with.
func (c *Client) Model() string {
	return c.model
}

// Chat issues one streaming chat completion. Deltas are delivered to onDelta
// as they arrive; the full aggregated text is returned when the stream ends.
// ctx cancellation is honored between chunk reads.
func (c *Client) Chat(ctx context.Context, messages []Message, onDelta StreamFunc) (string, error) {
	requestID := id.NewRequestID()

	body, err := json.Marshal(map[string]any{
		"model":    c.model,
		"messages": messages,
		"stream":   true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	c.logger.Debug("[%s] POST %s model=%s messages=%d", requestID, endpoint, c.model, len(messages))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("[%s] request failed: %v", requestID, err)
		return "", dberrors.WrapTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug("[%s] upstream status %d: %s", requestID, resp.StatusCode, respBody)
		return "", &dberrors.UpstreamHTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	agg := NewAggregator(onDelta)
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return "", dberrors.WrapTransport(err)
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			agg.Feed(buf[:n])
		}
		if readErr == io.EOF || agg.Done() {
			break
		}
		if readErr != nil {
			c.logger.Debug("[%s] stream read error: %v", requestID, readErr)
			return "", dberrors.WrapTransport(readErr)
		}
	}

	full := agg.Finish()
	c.logger.Debug("[%s] stream complete, %d chars", requestID, len(full))
	return full, nil
}

// ValidateKey sends a minimal one-message exchange over the normal streaming
// path and reports whether the provider accepted the credentials.
func (c *Client) ValidateKey(ctx context.Context) (bool, string) {
	_, err := c.Chat(ctx, []Message{{Role: RoleUser, Content: "Hi"}}, nil)
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}
