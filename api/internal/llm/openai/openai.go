package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"hazard-identify/api/internal/llm"
)

// Engine talks to any OpenAI-compatible chat completions endpoint
// (01.AI / lingyiwanwu by default).
type Engine struct {
	Model  string
	client *goopenai.Client
}

func New(key, baseURL, model string, timeout time.Duration) *Engine {
	cfg := goopenai.DefaultConfig(key)
	if u := strings.TrimRight(strings.TrimSpace(baseURL), "/"); u != "" {
		cfg.BaseURL = u
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Engine{
		Model:  model,
		client: goopenai.NewClientWithConfig(cfg),
	}
}

func (e *Engine) Name() string { return "openai" }

func (e *Engine) GetModel() string { return e.Model }

// Describe sends {model, messages} and returns the first choice's content.
func (e *Engine) Describe(ctx context.Context, req llm.Request) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    e.Model,
		Messages: toMessages(req.Messages),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", llm.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func toMessages(in []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(in))
	for _, m := range in {
		if len(m.Parts) == 0 {
			out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
			continue
		}
		parts := make([]goopenai.ChatMessagePart, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.Type {
			case llm.PartText:
				parts = append(parts, goopenai.ChatMessagePart{
					Type: goopenai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			case llm.PartImageURL:
				parts = append(parts, goopenai.ChatMessagePart{
					Type:     goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{URL: p.ImageURL},
				})
			}
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: m.Role, MultiContent: parts})
	}
	return out
}
