// Package llm wraps the text- and vision-generation capability behind
// small interfaces so the pipeline stages can be tested with stubs.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Generator is the text-generation capability consumed by the analysis
// stage. Calls are synchronous and blocking; failures surface as errors,
// never as truncated text.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Vision turns a page image into Markdown text.
type Vision interface {
	Describe(ctx context.Context, prompt string, image []byte, maxTokens int) (string, error)
}

// ClientConfig configures one model behind an OpenAI-compatible endpoint.
type ClientConfig struct {
	BaseURL     string // e.g. http://localhost:11434/v1 for Ollama
	APIKey      string
	Model       string
	System      string // system message, omitted when empty
	Temperature float32
	TopP        float32
}

// Client talks to an OpenAI-compatible chat endpoint. It implements both
// Generator and Vision; OCR and analysis construct separate clients with
// their own models.
type Client struct {
	api *openai.Client
	cfg ClientConfig
	log *slog.Logger
}

func NewClient(cfg ClientConfig, log *slog.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		api: openai.NewClientWithConfig(oc),
		cfg: cfg,
		log: log,
	}
}

func (c *Client) Model() string { return c.cfg.Model }

// Generate sends one chat completion and returns the trimmed response
// text.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var messages []openai.ChatCompletionMessage
	if c.cfg.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.cfg.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", c.cfg.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Describe sends one page image plus the OCR prompt to a vision model.
func (c *Client) Describe(ctx context.Context, prompt string, image []byte, maxTokens int) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
		MaxTokens:   maxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("vision completion (%s): %w", c.cfg.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
