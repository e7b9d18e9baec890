package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hazard-identify/api/internal/llm"
)

func TestDescribe(t *testing.T) {
	img := []byte("fake-image-bytes")
	var got struct {
		Model    string `json:"model"`
		Stream   *bool  `json:"stream"`
		Messages []struct {
			Role    string   `json:"role"`
			Content string   `json:"content"`
			Images  [][]byte `json:"images"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llava","message":{"role":"assistant","content":"脚手架缺少护栏"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	e, err := New(srv.URL, "llava", 5*time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req := llm.BuildRequest("data:image/png;base64,"+base64.StdEncoding.EncodeToString(img), "")
	out, err := e.Describe(context.Background(), req)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if out != "脚手架缺少护栏" {
		t.Errorf("out = %q", out)
	}
	if got.Model != "llava" || got.Stream == nil || *got.Stream {
		t.Errorf("model/stream = %q/%v", got.Model, got.Stream)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if len(got.Messages[1].Images) != 1 || !bytes.Equal(got.Messages[1].Images[0], img) {
		t.Error("image bytes not forwarded")
	}
	if got.Messages[1].Content != llm.UserPromptPrefix {
		t.Errorf("user content = %q", got.Messages[1].Content)
	}
}

func TestNew_InvalidHost(t *testing.T) {
	if _, err := New("::not a url", "llava", time.Second); err == nil {
		t.Fatal("expected error")
	}
}
