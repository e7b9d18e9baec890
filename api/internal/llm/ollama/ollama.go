package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"hazard-identify/api/internal/llm"
	"hazard-identify/api/internal/util"
)

// Engine runs the request against a local Ollama vision model (llava, minicpm-v, ...).
type Engine struct {
	Model  string
	client *api.Client
}

func New(host, model string, timeout time.Duration) (*Engine, error) {
	u, err := url.Parse(strings.TrimSpace(host))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama host %q", host)
	}
	base := &url.URL{Scheme: u.Scheme, Host: u.Host}
	return &Engine{
		Model:  model,
		client: api.NewClient(base, &http.Client{Timeout: timeout}),
	}, nil
}

func (e *Engine) Name() string     { return "ollama" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Describe(ctx context.Context, req llm.Request) (string, error) {
	msgs, err := toMessages(req.Messages)
	if err != nil {
		return "", err
	}

	stream := false
	var b strings.Builder
	err = e.client.Chat(ctx, &api.ChatRequest{
		Model:    e.Model,
		Messages: msgs,
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return b.String(), nil
}

func toMessages(in []llm.Message) ([]api.Message, error) {
	out := make([]api.Message, 0, len(in))
	for _, m := range in {
		msg := api.Message{Role: m.Role, Content: m.Text()}
		for _, dataURL := range m.Images() {
			img, _, err := util.DecodeBase64MaybeDataURL(dataURL)
			if err != nil {
				return nil, fmt.Errorf("ollama: bad image data url: %w", err)
			}
			msg.Images = append(msg.Images, api.ImageData(img))
		}
		out = append(out, msg)
	}
	return out, nil
}
