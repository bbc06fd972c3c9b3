package worker

import "github.com/hray3182/Athena/internal/models"

// ActionOpenHealth is the notification button that jumps to the health page
const ActionOpenHealth = "open-health"

// DeepLink resolves where a clicked notification should take the user
func DeepLink(action string, data map[string]string) string {
	if u := data["url"]; u != "" {
		return u
	}

	switch {
	case action == ActionOpenHealth:
		return "/health"
	case models.Kind(data["type"]) == models.KindWater:
		return "/health?tab=water"
	case models.Kind(data["type"]) == models.KindHealth:
		return "/health"
	}
	return "/"
}
