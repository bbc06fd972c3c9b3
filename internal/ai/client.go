package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/Athena/internal/models"
	"github.com/sashabaranov/go-openai"
)

var ErrNoResponse = errors.New("no response from AI")

// maxBodyLen keeps composed bodies in notification size
const maxBodyLen = 200

type Client struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		now:    time.Now,
	}
}

const systemPrompt = `You write the body text of a single phone notification for Athena, a personal life-management app.

Current time: %s

Rules:
- One or two short sentences, at most 160 characters.
- Warm and encouraging, never preachy.
- Plain text only: no quotes, no markdown, no hashtags. One emoji is fine.`

var kindPrompts = map[models.Kind]string{
	models.KindMotivation: "Write a good-morning motivational message to start the day.",
	models.KindWater:      "Write a friendly reminder to drink a glass of water.",
	models.KindHealth:     "Write a reminder to log today's health metrics and check in on how they feel.",
	models.KindExercise:   "Write a reminder to get some movement or exercise in today.",
}

// Compose asks the model for a fresh notification body for kind
func (c *Client) Compose(ctx context.Context, kind models.Kind) (string, error) {
	prompt, ok := kindPrompts[kind]
	if !ok {
		return "", fmt.Errorf("no prompt for kind %q", kind)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPrompt, c.now().Format("2006-01-02 15:04 (Monday)")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.9,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoResponse
	}

	body := cleanBody(resp.Choices[0].Message.Content)
	if body == "" {
		return "", ErrNoResponse
	}
	return body, nil
}

// cleanBody strips wrapping quotes and whitespace and caps the length
func cleanBody(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"“”")
	s = strings.TrimSpace(s)

	if r := []rune(s); len(r) > maxBodyLen {
		s = strings.TrimSpace(string(r[:maxBodyLen-1])) + "…"
	}
	return s
}
