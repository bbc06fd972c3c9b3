package telegram

import (
	"context"
	"fmt"
	"log"
	"maps"
	"net/url"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/Athena/internal/format"
	"github.com/hray3182/Athena/internal/models"
)

// sender is the part of the Bot API used for outgoing messages
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type shown struct {
	messageID int
	data      map[string]string
}

// Renderer shows notifications as chat messages. A notification whose tag is
// already on screen replaces the previous message.
type Renderer struct {
	api       sender
	chatID    int64
	publicURL *url.URL

	mu    sync.Mutex
	shown map[string]shown
}

func NewRenderer(api sender, chatID int64, publicURL *url.URL) *Renderer {
	return &Renderer{
		api:       api,
		chatID:    chatID,
		publicURL: publicURL,
		shown:     make(map[string]shown),
	}
}

func (r *Renderer) Show(_ context.Context, p models.Payload) error {
	parsed := format.Notification(p.Title, p.Body)
	msg := tgbotapi.NewMessage(r.chatID, parsed.Text)
	msg.Entities = parsed.Entities
	if keyboard, ok := notificationKeyboard(p); ok {
		msg.ReplyMarkup = keyboard
	} else {
		log.Printf("[telegram] Tag %q cannot be encoded in a button, showing %q without buttons", p.Tag, p.Title)
	}

	if prev, ok := r.forget(p.Tag); ok {
		r.delete(prev.messageID)
	}

	sent, err := r.api.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	r.mu.Lock()
	r.shown[p.Tag] = shown{messageID: sent.MessageID, data: maps.Clone(p.Data)}
	r.mu.Unlock()
	return nil
}

// Close removes the notification shown under tag, if any
func (r *Renderer) Close(_ context.Context, tag string) error {
	prev, ok := r.forget(tag)
	if !ok {
		return nil
	}
	return r.delete(prev.messageID)
}

// OpenWindow sends a button that opens the app at path
func (r *Renderer) OpenWindow(_ context.Context, path string) error {
	link := r.link(path)
	msg := tgbotapi.NewMessage(r.chatID, "Open Athena: "+link)
	if r.publicURL != nil {
		msg.Text = "Open Athena"
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🔗 Open", link),
			),
		)
	}
	if _, err := r.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send link: %w", err)
	}
	return nil
}

// Data returns the metadata of the notification shown under tag
func (r *Renderer) Data(tag string) (map[string]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shown[tag]
	if !ok {
		return nil, false
	}
	return maps.Clone(s.data), true
}

func (r *Renderer) forget(tag string) (shown, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shown[tag]
	delete(r.shown, tag)
	return s, ok
}

func (r *Renderer) delete(messageID int) error {
	if _, err := r.api.Request(tgbotapi.NewDeleteMessage(r.chatID, messageID)); err != nil {
		log.Printf("[telegram] Failed to delete message %d: %v", messageID, err)
		return err
	}
	return nil
}

func (r *Renderer) link(path string) string {
	if r.publicURL == nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return r.publicURL.String()
	}
	return r.publicURL.ResolveReference(ref).String()
}

func notificationKeyboard(p models.Payload) (tgbotapi.InlineKeyboardMarkup, bool) {
	open, ok := clickData(p.Tag, "")
	if !ok {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, a := range p.Actions {
		data, _ := clickData(p.Tag, a.ID)
		if data == open {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Title, data))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData("Open", open))
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}
