package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Engine interface {
	Name() string
	GetModel() string
	Describe(ctx context.Context, req Request) (string, error)
}

type Engines struct {
	OpenAI Engine
	Gemini Engine
	Ollama Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openai", "gpt", "yi":
		eng = e.OpenAI
	case "gemini":
		eng = e.Gemini
	case "ollama":
		eng = e.Ollama
	default:
		return nil, fmt.Errorf("unknown llm provider %q; use openai | gemini | ollama", name)
	}
	if eng == nil {
		return nil, fmt.Errorf("llm provider %q is not configured", name)
	}
	return eng, nil
}

var ErrEmptyResponse = errors.New("empty response")

// Invoke is the single call boundary to the model. Every failure, including a
// panic inside an engine and a blank answer, comes back as Outcome.Err.
func Invoke(ctx context.Context, e Engine, req Request) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("%s: panic: %v", e.Name(), r)}
		}
	}()

	text, err := e.Describe(ctx, req)
	if err != nil {
		return Outcome{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{Err: fmt.Errorf("%s: %w", e.Name(), ErrEmptyResponse)}
	}
	return Outcome{Text: text}
}
