package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/Athena/internal/models"
	"github.com/hray3182/Athena/internal/notify"
	"github.com/hray3182/Athena/internal/rrule"
)

const helpText = `📖 **Athena commands**

/reminders - list reminders and their next time
/water <minutes> [start] [end] - water reminder, e.g. ` + "`/water 45 07:00 21:00`" + `
/motivation <HH:MM> - morning motivation
/health <HH:MM> [days] - health check, e.g. ` + "`/health 19:00 sun,wed,sat`" + `
/water off, /motivation off, /health off - turn a category off
/on <id>, /off <id> - pause or resume a reminder
/defaults - restore the default reminders
/clear - cancel every reminder until restart
/permission - allow notifications`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.handleStart(ctx)
	case "help":
		b.sendMessage(helpText)
	case "reminders":
		b.handleReminders()
	case "water":
		b.updateSettings(ctx, args, applyWater, "/water <minutes> [start] [end]")
	case "motivation":
		b.updateSettings(ctx, args, applyMotivation, "/motivation <HH:MM>")
	case "health":
		b.updateSettings(ctx, args, applyHealth, "/health <HH:MM> [days]")
	case "on", "off":
		b.handleToggle(msg.Command() == "on", args)
	case "defaults":
		b.handleDefaults(ctx)
	case "clear":
		b.manager.ClearAll()
		b.sendMessage("🧹 All reminders cancelled. They come back on restart or with /defaults.")
	case "permission":
		b.handlePermission(ctx)
	default:
		b.sendMessage("Unknown command, see /help")
	}
}

func (b *Bot) handleStart(ctx context.Context) {
	b.sendMessage("👋 Hi, I'm **Athena**. I'll remind you to drink water, move and check in on yourself.\n\n" + helpText)
	if b.manager.Gate().Asked() {
		return
	}
	b.handlePermission(ctx)
}

func (b *Bot) handlePermission(ctx context.Context) {
	if b.prompter.Waiting() {
		b.sendMessage("A permission request is already waiting for your answer above.")
		return
	}
	status, err := b.manager.Enable(ctx)
	switch {
	case err != nil:
		log.Printf("[telegram] Enable failed: %v", err)
		b.sendMessage("❌ Failed to enable reminders")
	case status == notify.StatusGranted:
		b.handleReminders()
	case status == notify.StatusDenied:
		b.sendMessage("🚫 Notifications are blocked. Tap /permission to change your mind.")
	}
}

func (b *Bot) handleDefaults(ctx context.Context) {
	if err := b.manager.InstallDefaults(ctx); err != nil {
		log.Printf("[telegram] Failed to install defaults: %v", err)
		b.sendMessage("❌ Failed to restore defaults")
		return
	}
	b.afterSave()
}

func (b *Bot) handleToggle(enabled bool, args []string) {
	if len(args) != 1 {
		b.sendMessage("Usage: `/on <id>` or `/off <id>`, ids are listed by /reminders")
		return
	}
	if err := b.manager.Toggle(args[0], enabled); err != nil {
		b.sendMessage(fmt.Sprintf("⚠️ No reminder `%s`", args[0]))
		return
	}
	b.handleReminders()
}

type settingsEdit func(s *models.ReminderSettings, args []string) error

func (b *Bot) updateSettings(ctx context.Context, args []string, apply settingsEdit, usage string) {
	s, err := b.manager.LoadSettings(ctx)
	if err != nil {
		log.Printf("[telegram] %v", err)
		b.sendMessage("❌ Failed to load settings")
		return
	}
	if err := apply(&s, args); err != nil {
		b.sendMessage(fmt.Sprintf("⚠️ %v\nUsage: `%s`", err, usage))
		return
	}
	if err := b.manager.SaveSettings(ctx, s); err != nil {
		log.Printf("[telegram] Failed to save settings: %v", err)
		b.sendMessage("❌ Failed to save settings")
		return
	}
	b.afterSave()
}

func (b *Bot) afterSave() {
	if !b.manager.Gate().Granted() {
		b.sendMessage("✅ Saved. Reminders start once notifications are allowed: /permission")
		return
	}
	b.handleReminders()
}

func (b *Bot) handleReminders() {
	text, keyboard := b.remindersView()
	b.sendMessageWithKeyboard(text, keyboard)
}

func (b *Bot) handleReminderCallback(_ context.Context, messageID int, args []string) {
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "close":
		b.deleteMessage(messageID)
		return
	case "on", "off":
		if len(args) != 2 {
			return
		}
		if err := b.manager.Toggle(args[1], args[0] == "on"); err != nil {
			log.Printf("[telegram] Toggle %s: %v", args[1], err)
		}
	default:
		return
	}
	text, keyboard := b.remindersView()
	b.editMessageWithKeyboard(messageID, text, keyboard)
}

func (b *Bot) remindersView() (string, tgbotapi.InlineKeyboardMarkup) {
	list := b.manager.List()
	now := b.now().In(b.loc)

	var sb strings.Builder
	sb.WriteString("⏰ **Reminders**\n\n")
	if len(list) == 0 {
		sb.WriteString("Nothing scheduled.")
		if !b.manager.Gate().Granted() {
			sb.WriteString(" Allow notifications with /permission.")
		}
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range list {
		mark, toggle := "✅", "off"
		if !s.Enabled {
			mark, toggle = "⏸", "on"
		}
		fmt.Fprintf(&sb, "%s `%s` %s\n", mark, s.ID, rrule.Describe(s))
		if next, ok := rrule.NextFire(s, now, b.loc); ok && s.Enabled {
			fmt.Fprintf(&sb, "    next: %s\n", next.Format("Mon 02 Jan 15:04"))
		}

		label := "⏸ Pause " + s.ID
		if toggle == "on" {
			label = "▶️ Resume " + s.ID
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, prefixReminder+":"+toggle+":"+s.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Close", prefixReminder+":close"),
	))

	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func isOff(args []string) bool {
	return len(args) == 1 && strings.EqualFold(args[0], "off")
}

func applyWater(s *models.ReminderSettings, args []string) error {
	if isOff(args) {
		s.WaterEnabled = false
		return nil
	}
	if len(args) < 1 || len(args) > 3 {
		return errors.New("expected an interval in minutes")
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes <= 0 {
		return fmt.Errorf("invalid interval %q", args[0])
	}
	start, end := s.WaterStart, s.WaterEnd
	if len(args) > 1 {
		start = args[1]
	}
	if len(args) > 2 {
		end = args[2]
	}
	for _, v := range []string{start, end} {
		if _, err := models.ParseClock(v); err != nil {
			return err
		}
	}
	s.WaterEnabled = true
	s.WaterInterval = minutes
	s.WaterStart, s.WaterEnd = start, end
	return nil
}

func applyMotivation(s *models.ReminderSettings, args []string) error {
	if isOff(args) {
		s.MotivationEnabled = false
		return nil
	}
	if len(args) != 1 {
		return errors.New("expected a time")
	}
	if _, err := models.ParseClock(args[0]); err != nil {
		return err
	}
	s.MotivationEnabled = true
	s.MotivationTime = args[0]
	return nil
}

func applyHealth(s *models.ReminderSettings, args []string) error {
	if isOff(args) {
		s.HealthEnabled = false
		return nil
	}
	if len(args) < 1 {
		return errors.New("expected a time")
	}
	if _, err := models.ParseClock(args[0]); err != nil {
		return err
	}
	if len(args) > 1 {
		days, err := models.ParseDays(strings.Join(args[1:], ","))
		if err != nil {
			return err
		}
		if len(days) == 0 {
			return errors.New("expected at least one day")
		}
		s.HealthDays = days
	}
	s.HealthEnabled = true
	s.HealthTime = args[0]
	return nil
}
