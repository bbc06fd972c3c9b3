package format

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len returns the length of s in UTF-16 code units, the unit Telegram
// uses for entity offsets.
func UTF16Len(s string) int {
	length := 0
	for _, b := range []byte(s) {
		if b&0xc0 == 0x80 {
			continue
		}
		if b >= 0xf0 {
			length += 2
		} else {
			length++
		}
	}
	return length
}

var (
	boldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)
	codeRe = regexp.MustCompile("`([^`]+?)`")
)

// ParseMarkdown converts **bold** and `code` spans into Telegram entities
func ParseMarkdown(text string) ParseResult {
	var entities []tgbotapi.MessageEntity
	result := text

	strip := func(re *regexp.Regexp, kind string) {
		for {
			loc := re.FindStringSubmatchIndex(result)
			if loc == nil {
				return
			}
			inner := result[loc[2]:loc[3]]
			start := UTF16Len(result[:loc[0]])
			// closing marker first so the opening marker's position stays valid
			removeRange(entities, UTF16Len(result[:loc[3]]), UTF16Len(result[loc[3]:loc[1]]))
			removeRange(entities, start, UTF16Len(result[loc[0]:loc[2]]))
			entities = append(entities, tgbotapi.MessageEntity{
				Type:   kind,
				Offset: start,
				Length: UTF16Len(inner),
			})
			result = result[:loc[0]] + inner + result[loc[1]:]
		}
	}
	strip(boldRe, "bold")
	strip(codeRe, "code")

	slices.SortStableFunc(entities, func(a, b tgbotapi.MessageEntity) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	return ParseResult{
		Text:     strings.TrimRight(result, " \n"),
		Entities: entities,
	}
}

// removeRange adjusts entities for n units of text deleted at pos
func removeRange(entities []tgbotapi.MessageEntity, pos, n int) {
	shift := func(x int) int {
		switch {
		case x >= pos+n:
			return x - n
		case x > pos:
			return pos
		}
		return x
	}
	for i := range entities {
		end := shift(entities[i].Offset + entities[i].Length)
		entities[i].Offset = shift(entities[i].Offset)
		entities[i].Length = end - entities[i].Offset
	}
}

// Notification renders a title and body as a message with a bold title line
func Notification(title, body string) ParseResult {
	if title == "" {
		return ParseResult{Text: body}
	}
	text := title
	if body != "" {
		text += "\n" + body
	}
	return ParseResult{
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bold", Offset: 0, Length: UTF16Len(title)},
		},
	}
}
