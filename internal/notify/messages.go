package notify

import "github.com/hray3182/Athena/internal/models"

var waterReminderMessages = []string{
	"Stay hydrated! Time for a glass of water 💧",
	"Water break! Your body will thank you later 💦",
	"Hydration check! Grab your water bottle 🚰",
	"It's water o'clock! Take a refreshing sip 🌊",
	"Friendly reminder: Drink some water now 💧",
	"Water is life! Take a moment to hydrate 💦",
	"Your plants get water, how about you? 🌱💧",
	"Hydration leads to success! Drink up 🏆",
	"Water break! Keep your energy levels up 💪",
	"Your brain is 75% water, keep it topped up! 🧠",
}

var morningMotivationQuotes = []string{
	"Good morning! Today is a new beginning full of endless possibilities.",
	"Rise and shine! Your positive attitude determines your altitude today.",
	"Start your day with gratitude and watch how your perspective shifts.",
	"Today is your opportunity to build the tomorrow you want.",
	"Good morning! Remember that every accomplishment starts with the decision to try.",
	"Embrace the day with enthusiasm - your energy sets the tone for your success.",
	"Morning! The only limit to your potential today is the one you set in your mind.",
	"Begin today with a grateful heart and watch good things flow to you.",
	"Your future is created by what you do today, not tomorrow. Make it count!",
	"Good morning! Small daily improvements lead to stunning results over time.",
}

// MessagePool returns the fixed body pool for kinds that rotate their wording
func MessagePool(kind models.Kind) []string {
	switch kind {
	case models.KindWater:
		return append([]string(nil), waterReminderMessages...)
	case models.KindMotivation:
		return append([]string(nil), morningMotivationQuotes...)
	}
	return nil
}
