package services

import "strings"

// checkMarks is the fixed family of glyphs accepted as a reading check-in.
// Variants with and without the emoji variation selector (U+FE0F) are listed
// separately because clients are inconsistent about sending it.
var checkMarks = []string{
	"✅",       // white heavy check mark
	"✔️", // heavy check mark, emoji presentation
	"✔",       // heavy check mark
	"✓",       // check mark
	"☑️", // ballot box with check, emoji presentation
	"☑",       // ballot box with check
	"\U0001f5f8",   // light check mark
}

// MatchCheckMark reports whether text contains one of the recognized
// checkmark glyphs anywhere in it, and returns the first marker found.
// Pure classification, no side effects.
func MatchCheckMark(text string) (string, bool) {
	for _, mark := range checkMarks {
		if strings.Contains(text, mark) {
			return mark, true
		}
	}
	return "", false
}
