package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/platform/envutil"
	"github.com/yungbote/bigocean-backend/internal/platform/httpx"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

const responsesPath = "/v1/responses"

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

type Completion struct {
	Text  string
	Usage Usage
}

// Client is the slice of the OpenAI Responses API the backend uses.
type Client interface {
	// GenerateText runs a plain-text turn over a transcript.
	GenerateText(ctx context.Context, instructions string, turns []Turn) (Completion, error)
	// GenerateJSON runs a structured-output turn constrained by a JSON schema
	// and returns the raw JSON document.
	GenerateJSON(ctx context.Context, instructions string, user string, schemaName string, schema map[string]any) (json.RawMessage, Usage, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature *float64
}

// ConfigFromEnv reads OPENAI_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:     envutil.String("OPENAI_API_KEY", ""),
		BaseURL:    envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:      envutil.String("OPENAI_MODEL", "gpt-4.1-mini"),
		Timeout:    envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 120*time.Second),
		MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 4),
	}
	if !envutil.Bool("OPENAI_DISABLE_TEMPERATURE", false) {
		t := envutil.Float("OPENAI_TEMPERATURE", 0.7)
		cfg.Temperature = &t
	}
	return cfg
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
	metrics    *observability.Metrics

	temperature *float64
	// models that rejected temperature once; it is omitted for them thereafter
	noTempMu sync.RWMutex
	noTemp   map[string]bool
}

func NewClient(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4.1-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:         log.With("client", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		httpClient:  &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		metrics:     metrics,
		temperature: cfg.Temperature,
		noTemp:      map[string]bool{},
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func isUnsupportedTemperature(err error) bool {
	var httpErr *openAIHTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(httpErr.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, marker := range []string{"unsupported", "unknown parameter", "not supported", "does not support", "only the default"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

type inputItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model        string      `json:"model"`
	Instructions string      `json:"instructions,omitempty"`
	Input        []inputItem `json:"input"`
	Text         *struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Usage struct {
		InputTokens      int `json:"input_tokens"`
		OutputTokens     int `json:"output_tokens"`
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (r responsesResponse) usage() Usage {
	u := Usage{InputTokens: r.Usage.InputTokens, OutputTokens: r.Usage.OutputTokens}
	if u.InputTokens == 0 && u.OutputTokens == 0 {
		u = Usage{InputTokens: r.Usage.PromptTokens, OutputTokens: r.Usage.CompletionTokens}
	}
	return u
}

func (r responsesResponse) outputText() (string, string) {
	var out, refusal strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				out.WriteString(c.Text)
			case "refusal":
				refusal.WriteString(c.Refusal)
			}
		}
	}
	return out.String(), refusal.String()
}

func (c *client) GenerateText(ctx context.Context, instructions string, turns []Turn) (Completion, error) {
	if len(turns) == 0 {
		return Completion{}, errors.New("at least one turn required")
	}
	req := &responsesRequest{Model: c.model, Instructions: instructions}
	for _, t := range turns {
		req.Input = append(req.Input, inputItem{Role: t.Role, Content: t.Content})
	}
	resp, err := c.respond(ctx, req)
	if err != nil {
		return Completion{}, err
	}
	text, refusal := resp.outputText()
	if refusal != "" {
		return Completion{}, fmt.Errorf("model refused: %s", refusal)
	}
	if strings.TrimSpace(text) == "" {
		return Completion{}, errors.New("no output_text found in response")
	}
	return Completion{Text: text, Usage: resp.usage()}, nil
}

func (c *client) GenerateJSON(ctx context.Context, instructions string, user string, schemaName string, schema map[string]any) (json.RawMessage, Usage, error) {
	if schemaName == "" {
		return nil, Usage{}, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, Usage{}, errors.New("schema required")
	}
	req := &responsesRequest{
		Model:        c.model,
		Instructions: instructions,
		Input:        []inputItem{{Role: "user", Content: user}},
		Text: &struct {
			Format map[string]any `json:"format,omitempty"`
		}{Format: map[string]any{
			"type":   "json_schema",
			"name":   schemaName,
			"schema": schema,
			"strict": true,
		}},
	}
	resp, err := c.respond(ctx, req)
	if err != nil {
		return nil, Usage{}, err
	}
	text, refusal := resp.outputText()
	if refusal != "" {
		return nil, resp.usage(), fmt.Errorf("model refused: %s", refusal)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, resp.usage(), errors.New("no output_text found in response")
	}
	if !json.Valid([]byte(text)) {
		return nil, resp.usage(), fmt.Errorf("model returned invalid JSON: %s", text)
	}
	return json.RawMessage(text), resp.usage(), nil
}

// respond sends req, retrying once without temperature if the model rejects it.
func (c *client) respond(ctx context.Context, req *responsesRequest) (responsesResponse, error) {
	c.applyTemperature(req)
	var resp responsesResponse
	err := c.do(ctx, http.MethodPost, responsesPath, req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperature(err) {
		c.noteNoTemp(req.Model)
		req.Temperature = nil
		resp = responsesResponse{}
		err = c.do(ctx, http.MethodPost, responsesPath, req, &resp)
	}
	return resp, err
}

func (c *client) applyTemperature(req *responsesRequest) {
	if c.temperature == nil {
		return
	}
	c.noTempMu.RLock()
	skip := c.noTemp[req.Model]
	c.noTempMu.RUnlock()
	if !skip {
		req.Temperature = c.temperature
	}
}

func (c *client) noteNoTemp(model string) {
	c.noTempMu.Lock()
	c.noTemp[model] = true
	c.noTempMu.Unlock()
	c.log.Warn("model rejected temperature; omitting it from now on", "model", model)
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body *responsesRequest, out *responsesResponse) error {
	backoff := 1 * time.Second
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			u := out.usage()
			c.metrics.ObserveLLMRequest(body.Model, path, statusFromResp(resp, nil), time.Since(start), u.InputTokens, u.OutputTokens)
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			c.metrics.ObserveLLMRequest(body.Model, path, statusFromResp(resp, err), time.Since(start), 0, 0)
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		timer := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func statusFromResp(resp *http.Response, err error) string {
	if resp != nil {
		return strconv.Itoa(resp.StatusCode)
	}
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}
