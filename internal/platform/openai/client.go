package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/estrella-backend/internal/pkg/httpx"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
	"github.com/yungbote/estrella-backend/internal/platform/envutil"
)

// Client is the subset of the OpenAI Responses API the backend uses.
type Client interface {
	// Respond runs one stateless Responses call. Callers resend the whole
	// conversation, including earlier function calls and their outputs.
	Respond(ctx context.Context, req Request) (Response, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		APIKey:     strings.TrimSpace(envutil.String("OPENAI_API_KEY", "", log)),
		BaseURL:    envutil.String("OPENAI_BASE_URL", "https://api.openai.com", log),
		Model:      envutil.String("OPENAI_MODEL", "gpt-4o-mini", log),
		Timeout:    envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 60*time.Second, log),
		MaxRetries: envutil.Int("OPENAI_MAX_RETRIES", 2, log),
	}
}

// Input item types.
const (
	ItemMessage            = "message"
	ItemFunctionCall       = "function_call"
	ItemFunctionCallOutput = "function_call_output"
)

// InputItem is either a role message or a function call round trip.
type InputItem struct {
	Type      string `json:"type,omitempty"`
	Role      string `json:"role,omitempty"`
	Content   any    `json:"content,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

func Message(role, content string) InputItem {
	return InputItem{Role: role, Content: content}
}

// Tool declares a function the model may call.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      bool           `json:"strict,omitempty"`
}

func FunctionTool(name, description string, parameters map[string]any) Tool {
	return Tool{Type: "function", Name: name, Description: description, Parameters: parameters}
}

type Request struct {
	Instructions string
	Input        []InputItem
	Tools        []Tool
	Temperature  float64
}

// FunctionCall is a raw function_call output item. Arguments is unparsed
// JSON and must be validated by the caller.
type FunctionCall struct {
	CallID    string
	Name      string
	Arguments string
}

type Response struct {
	Text          string
	FunctionCalls []FunctionCall
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		backoff:    time.Second,
	}, nil
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
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		req.Header.Set("X-Client-Request-Id", td.RequestID)
	}

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
		return resp, raw, &httpx.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := c.backoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			append(ctxutil.LogFields(ctx),
				"path", path,
				"attempt", attempt+1,
				"max_retries", c.maxRetries,
				"sleep", sleepFor.String(),
				"error", err.Error(),
			)...,
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

type responsesRequest struct {
	Model        string      `json:"model"`
	Instructions string      `json:"instructions,omitempty"`
	Input        []InputItem `json:"input"`
	Tools        []Tool      `json:"tools,omitempty"`
	Temperature  float64     `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type      string `json:"type"`
		Role      string `json:"role,omitempty"`
		CallID    string `json:"call_id,omitempty"`
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
		Content   []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) Respond(ctx context.Context, r Request) (Response, error) {
	var out Response
	if len(r.Input) == 0 {
		return out, errors.New("input required")
	}
	req := responsesRequest{
		Model:        c.model,
		Instructions: r.Instructions,
		Input:        r.Input,
		Tools:        r.Tools,
		Temperature:  r.Temperature,
	}

	var resp responsesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/responses", req, &resp); err != nil {
		return out, err
	}
	if resp.Refusal != "" {
		return out, fmt.Errorf("model refused: %s", resp.Refusal)
	}

	for _, item := range resp.Output {
		if item.Type == ItemFunctionCall {
			out.FunctionCalls = append(out.FunctionCalls, FunctionCall{
				CallID:    item.CallID,
				Name:      item.Name,
				Arguments: item.Arguments,
			})
		}
	}
	out.Text = extractOutputText(resp)
	if strings.TrimSpace(out.Text) == "" && len(out.FunctionCalls) == 0 {
		return out, fmt.Errorf("no output_text found in response")
	}
	return out, nil
}
