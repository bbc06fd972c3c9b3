package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hray3182/Athena/internal/models"
)

func newTestClient(t *testing.T, content string, choices int) (*Client, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			prompts = append(prompts, m.Content)
		}

		resp := map[string]any{"id": "chatcmpl-1", "object": "chat.completion", "choices": []any{}}
		if choices > 0 {
			resp["choices"] = []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return New("test-key", srv.URL+"/v1", "test-model"), &prompts
}

func TestComposeMotivation(t *testing.T) {
	c, prompts := newTestClient(t, "  \"Rise and build something great today ☀️\"\n", 1)

	got, err := c.Compose(context.Background(), models.KindMotivation)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Rise and build something great today ☀️" {
		t.Errorf("Compose() = %q", got)
	}
	if len(*prompts) != 2 || !strings.Contains((*prompts)[1], "good-morning") {
		t.Errorf("prompts = %q", *prompts)
	}
}

func TestComposeErrors(t *testing.T) {
	c, _ := newTestClient(t, "", 0)
	if _, err := c.Compose(context.Background(), models.KindMotivation); !errors.Is(err, ErrNoResponse) {
		t.Errorf("empty choices error = %v", err)
	}

	blank, _ := newTestClient(t, "   ", 1)
	if _, err := blank.Compose(context.Background(), models.KindWater); !errors.Is(err, ErrNoResponse) {
		t.Errorf("blank content error = %v", err)
	}

	if _, err := c.Compose(context.Background(), models.KindFinance); err == nil {
		t.Error("expected error for kind without prompt")
	}
}

func TestCleanBodyCapsLength(t *testing.T) {
	got := cleanBody(strings.Repeat("a", 300))
	if n := len([]rune(got)); n != maxBodyLen {
		t.Errorf("length = %d, want %d", n, maxBodyLen)
	}
}
