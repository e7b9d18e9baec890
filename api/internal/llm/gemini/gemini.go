package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"hazard-identify/api/internal/llm"
	"hazard-identify/api/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Describe(ctx context.Context, req llm.Request) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	system, parts, err := buildParts(req)
	if err != nil {
		return "", err
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if system != nil {
		m.SystemInstruction = system
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}
	return txt, nil
}

// buildParts turns the chat turns into a system instruction plus user parts;
// image data URLs are decoded back into blobs.
func buildParts(req llm.Request) (*genai.Content, []genai.Part, error) {
	var system *genai.Content
	var parts []genai.Part
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			system = &genai.Content{Parts: []genai.Part{genai.Text(msg.Text())}}
			continue
		}
		if len(msg.Parts) == 0 {
			parts = append(parts, genai.Text(msg.Content))
			continue
		}
		for _, p := range msg.Parts {
			switch p.Type {
			case llm.PartText:
				parts = append(parts, genai.Text(p.Text))
			case llm.PartImageURL:
				data, mime, err := util.DecodeBase64MaybeDataURL(p.ImageURL)
				if err != nil {
					return nil, nil, fmt.Errorf("gemini: bad image data url: %w", err)
				}
				parts = append(parts, &genai.Blob{MIMEType: normalizeMIME(util.PickMIME("", mime, data)), Data: data})
			}
		}
	}
	return system, parts, nil
}

// Gemini rejects the non-standard image/jpg that extension-derived data URLs carry.
func normalizeMIME(mime string) string {
	if strings.EqualFold(mime, "image/jpg") {
		return "image/jpeg"
	}
	return mime
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
