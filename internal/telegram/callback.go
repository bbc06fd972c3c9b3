package telegram

import "strings"

// Callback data prefixes
const (
	prefixClick      = "notif"
	prefixPermission = "perm"
	prefixReminder   = "rem"
)

// Telegram rejects callback data longer than this
const maxCallbackData = 64

// clickData encodes a press on a notification: "notif:<tag>:<action>". An
// action that does not fit is dropped. False when the tag itself cannot be
// encoded, in which case the notification gets no buttons.
func clickData(tag, action string) (string, bool) {
	base := prefixClick + ":" + tag + ":"
	if tag == "" || strings.Contains(tag, ":") || len(base) > maxCallbackData {
		return "", false
	}
	if strings.Contains(action, ":") || len(base+action) > maxCallbackData {
		return base, true
	}
	return base + action, true
}

// parseCallback splits callback data into its prefix and arguments. Tags may
// not contain ':' so the split is unambiguous.
func parseCallback(data string) (prefix string, args []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}
