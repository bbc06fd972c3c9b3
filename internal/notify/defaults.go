package notify

import (
	"time"

	"github.com/hray3182/Athena/internal/models"
)

// Stable identities of the built-in reminders
const (
	WaterReminderID     = "water-reminder"
	MorningMotivationID = "morning-motivation"
	HealthCheckID       = "health-check"
)

// WaterReminder repeats every interval inside the [start, end] window
func WaterReminder(intervalMinutes int, start, end string) models.Schedule {
	return models.Schedule{
		ID:      WaterReminderID,
		Kind:    models.KindWater,
		Rule:    models.Every(time.Duration(intervalMinutes)*time.Minute, start, end),
		Enabled: true,
		Template: models.Template{
			Payload: models.Payload{
				Title: "Hydration Reminder",
				Body:  waterReminderMessages[0],
				Icon:  "/icons/water-reminder.png",
				Badge: models.DefaultBadge,
				Tag:   "water-reminder",
				Data:  map[string]string{"type": string(models.KindWater)},
			},
			Pool: MessagePool(models.KindWater),
		},
	}
}

// MorningMotivation fires once a day at clock
func MorningMotivation(clock string) models.Schedule {
	return models.Schedule{
		ID:      MorningMotivationID,
		Kind:    models.KindMotivation,
		Rule:    models.DailyAt(clock),
		Enabled: true,
		Template: models.Template{
			Payload: models.Payload{
				Title: "Good Morning!",
				Body:  morningMotivationQuotes[0],
				Icon:  "/icons/motivation.png",
				Badge: models.DefaultBadge,
				Tag:   "motivation",
				Data:  map[string]string{"type": string(models.KindMotivation)},
			},
			Pool: MessagePool(models.KindMotivation),
		},
	}
}

// HealthCheckReminder fires at clock on the given weekdays
func HealthCheckReminder(clock string, days []time.Weekday) models.Schedule {
	return models.Schedule{
		ID:      HealthCheckID,
		Kind:    models.KindExercise,
		Rule:    models.DailyAt(clock),
		Days:    days,
		Enabled: true,
		Template: models.Template{
			Payload: models.Payload{
				Title:   "Health Check",
				Body:    "Time to log your health metrics for the day! How are you feeling?",
				Icon:    "/icons/health-reminder.png",
				Badge:   models.DefaultBadge,
				Tag:     "health-check",
				Data:    map[string]string{"type": string(models.KindHealth)},
				Actions: []models.Action{{ID: "open-health", Title: "Open Health"}},
			},
		},
	}
}
