// Package llm implements the OpenAI-compatible language model client used to
// synthesize answers from retrieved text.
package llm

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

	"webqa/internal/domain"
)

const (
	APICompletions = "completions"
	APIChat        = "chat"

	DefaultCompletionsModel = "gpt-3.5-turbo-instruct"
	DefaultChatModel        = "gpt-4o-mini"
)

// Config configures the model client.
type Config struct {
	BaseURL     string
	APIKey      string
	API         string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client implements domain.Completer over /completions or /chat/completions.
type Client struct {
	cfg    Config
	client *http.Client
}

var _ domain.Completer = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing OpenAI API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	switch cfg.API {
	case "", APICompletions:
		cfg.API = APICompletions
		if cfg.Model == "" {
			cfg.Model = DefaultCompletionsModel
		}
	case APIChat:
		if cfg.Model == "" {
			cfg.Model = DefaultChatModel
		}
	default:
		return nil, fmt.Errorf("unknown llm api: %s", cfg.API)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Factory returns a domain.CompleterFactory that builds clients from base for each API key.
func Factory(base Config) domain.CompleterFactory {
	return func(apiKey string) (domain.Completer, error) {
		cfg := base
		cfg.APIKey = apiKey
		return NewClient(cfg)
	}
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt to the model and returns its text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.API == APIChat {
		var out chatResponse
		err := c.post(ctx, "/chat/completions", chatRequest{
			Model:       c.cfg.Model,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
		}, &out)
		if err != nil {
			return "", err
		}
		if len(out.Choices) == 0 {
			return "", errors.New("llm returned no choices")
		}
		return strings.TrimSpace(out.Choices[0].Message.Content), nil
	}

	var out completionResponse
	err := c.post(ctx, "/completions", completionRequest{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Text), nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("llm request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("llm read: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(payload, &e) == nil && e.Error.Message != "" {
			return fmt.Errorf("llm failed: %s: %s", resp.Status, e.Error.Message)
		}
		return fmt.Errorf("llm failed: %s", resp.Status)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("llm decode: %w", err)
	}
	return nil
}
