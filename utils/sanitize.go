package utils

import "github.com/microcosm-cc/bluemonday"

// Telegram only allows a narrow HTML subset in message text; anything else
// is stripped before a template is stored.
var sanitizer = bluemonday.NewPolicy().
	AllowElements("b", "strong", "i", "em", "u", "s", "code", "pre").
	AllowAttrs("href").OnElements("a")

// Sanitize cleans template HTML down to the Telegram-supported subset.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
