package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchCheckMark(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"white heavy check mark", "✅", true},
		{"heavy check mark with variation selector", "✔️", true},
		{"heavy check mark", "✔", true},
		{"plain check mark", "✓", true},
		{"ballot box with check emoji", "☑️", true},
		{"ballot box with check", "☑", true},
		{"light check mark", "\U0001f5f8", true},
		{"embedded in sentence", "done for today ✅ alhamdulillah", true},
		{"arabic text with mark", "قرأت وردي اليوم ✓", true},
		{"plain text", "done for today", false},
		{"empty", "", false},
		{"cross mark", "❌", false},
		{"command", "/streak", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker, ok := MatchCheckMark(tt.text)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.NotEmpty(t, marker)
				assert.Contains(t, tt.text, marker)
			} else {
				assert.Empty(t, marker)
			}
		})
	}
}

func TestMatchCheckMarkPrefersFirstListed(t *testing.T) {
	// A message containing several glyphs reports a single stable marker.
	marker, ok := MatchCheckMark("✓ ✅")
	assert.True(t, ok)
	assert.Equal(t, "✅", marker)
}
