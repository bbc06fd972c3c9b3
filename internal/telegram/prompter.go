package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/Athena/internal/notify"
)

var ErrPromptPending = errors.New("permission prompt already pending")

// promptTimeout bounds how long a prompt waits for the button press
const promptTimeout = 5 * time.Minute

// Prompter asks for notification permission with an Allow/Block keyboard and
// waits for the answer to come back as a callback.
type Prompter struct {
	api    sender
	chatID int64

	mu      sync.Mutex
	pending chan notify.Status
}

func NewPrompter(api sender, chatID int64) *Prompter {
	return &Prompter{api: api, chatID: chatID}
}

func (p *Prompter) Prompt(ctx context.Context) (notify.Status, error) {
	answer := make(chan notify.Status, 1)

	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		return notify.StatusDefault, ErrPromptPending
	}
	p.pending = answer
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()
	}()

	msg := tgbotapi.NewMessage(p.chatID, "🔔 Athena would like to send you reminders. Allow notifications?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Allow", prefixPermission+":"+string(notify.StatusGranted)),
			tgbotapi.NewInlineKeyboardButtonData("🚫 Block", prefixPermission+":"+string(notify.StatusDenied)),
		),
	)
	if _, err := p.api.Send(msg); err != nil {
		return notify.StatusDefault, fmt.Errorf("failed to send permission prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, promptTimeout)
	defer cancel()

	select {
	case s := <-answer:
		return s, nil
	case <-ctx.Done():
		return notify.StatusDefault, ctx.Err()
	}
}

// Waiting reports whether a prompt is waiting for its answer
func (p *Prompter) Waiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Answer resolves the pending prompt. False when nothing is waiting.
func (p *Prompter) Answer(s notify.Status) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		return false
	}
	select {
	case p.pending <- s:
	default:
	}
	return true
}
