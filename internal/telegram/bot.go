package telegram

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/Athena/internal/format"
	"github.com/hray3182/Athena/internal/notify"
	"github.com/hray3182/Athena/internal/worker"
)

// ClickHandler receives presses on rendered notifications
type ClickHandler interface {
	HandleClick(ctx context.Context, c worker.Click) bool
}

// Bot is the chat front end: it relays notification clicks and permission
// answers and offers reminder settings as commands.
type Bot struct {
	bot      *tgbotapi.BotAPI
	api      sender
	chatID   int64
	manager  *notify.Manager
	renderer *Renderer
	prompter *Prompter
	clicks   ClickHandler
	loc      *time.Location
	now      func() time.Time
}

func New(api *tgbotapi.BotAPI, chatID int64, manager *notify.Manager, renderer *Renderer, prompter *Prompter, clicks ClickHandler, loc *time.Location) *Bot {
	b := newBot(api, chatID, manager, renderer, prompter, clicks, loc)
	b.bot = api
	return b
}

func newBot(api sender, chatID int64, manager *notify.Manager, renderer *Renderer, prompter *Prompter, clicks ClickHandler, loc *time.Location) *Bot {
	return &Bot{
		api:      api,
		chatID:   chatID,
		manager:  manager,
		renderer: renderer,
		prompter: prompter,
		clicks:   clicks,
		loc:      loc,
		now:      time.Now,
	}
}

func (b *Bot) Start(ctx context.Context) error {
	log.Printf("[telegram] Authorized on account %s", b.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	defer b.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat.ID != b.chatID {
			log.Printf("[telegram] Ignoring message from chat %d", update.Message.Chat.ID)
			return
		}
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Answer callback to remove loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[telegram] Failed to answer callback: %v", err)
	}
	if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != b.chatID {
		return
	}

	prefix, args := parseCallback(cb.Data)
	switch prefix {
	case prefixClick:
		if len(args) < 2 {
			return
		}
		b.handleClick(ctx, args[0], args[1])

	case prefixPermission:
		if len(args) != 1 {
			return
		}
		b.handlePermissionAnswer(ctx, cb.Message.MessageID, notify.Status(args[0]))

	case prefixReminder:
		b.handleReminderCallback(ctx, cb.Message.MessageID, args)
	}
}

func (b *Bot) handleClick(ctx context.Context, tag, action string) {
	data, ok := b.renderer.Data(tag)
	if !ok {
		// Shown before a restart; the tag is all that is left
		data = map[string]string{}
	}
	if !b.clicks.HandleClick(ctx, worker.Click{Tag: tag, Action: action, Data: data}) {
		log.Printf("[telegram] Worker not running, click on %q dropped", tag)
	}
}

func (b *Bot) handlePermissionAnswer(ctx context.Context, messageID int, status notify.Status) {
	if !status.Valid() || status == notify.StatusDefault {
		return
	}

	// No prompt waiting (timed out or sent before a restart): record it here
	if !b.prompter.Answer(status) {
		if err := b.manager.Gate().Set(ctx, status); err != nil {
			log.Printf("[telegram] Failed to record permission: %v", err)
			return
		}
		if err := b.manager.Restore(ctx); err != nil {
			log.Printf("[telegram] Failed to restore reminders: %v", err)
		}
	}

	text := "✅ Notifications allowed"
	if status == notify.StatusDenied {
		text = "🚫 Notifications blocked"
	}
	b.editMessageText(messageID, text)
}

func (b *Bot) sendMessage(text string) {
	parsed := format.ParseMarkdown(text)
	msg := tgbotapi.NewMessage(b.chatID, parsed.Text)
	msg.Entities = parsed.Entities
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[telegram] Failed to send message: %v", err)
	}
}

func (b *Bot) sendMessageWithKeyboard(text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	parsed := format.ParseMarkdown(text)
	msg := tgbotapi.NewMessage(b.chatID, parsed.Text)
	msg.Entities = parsed.Entities
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[telegram] Failed to send message: %v", err)
	}
}

func (b *Bot) editMessageText(messageID int, text string) {
	parsed := format.ParseMarkdown(text)
	edit := tgbotapi.NewEditMessageText(b.chatID, messageID, parsed.Text)
	edit.Entities = parsed.Entities
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("[telegram] Failed to edit message: %v", err)
	}
}

func (b *Bot) editMessageWithKeyboard(messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	parsed := format.ParseMarkdown(text)
	edit := tgbotapi.NewEditMessageText(b.chatID, messageID, parsed.Text)
	edit.Entities = parsed.Entities
	edit.ReplyMarkup = &keyboard
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("[telegram] Failed to edit message with keyboard: %v", err)
	}
}

func (b *Bot) deleteMessage(messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(b.chatID, messageID)); err != nil {
		log.Printf("[telegram] Failed to delete message: %v", err)
	}
}
