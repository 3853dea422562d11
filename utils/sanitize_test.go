package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"allowed bold", "<b>7 days!</b>", "<b>7 days!</b>"},
		{"allowed code", "read <code>2:255</code>", "read <code>2:255</code>"},
		{"script stripped", `<script>alert(1)</script>keep reading`, "keep reading"},
		{"div unwrapped", "<div>text</div>", "text"},
		{"img removed", `before<img src="x">after`, "beforeafter"},
		{"event handler dropped", `<b onclick="x()">hi</b>`, "<b>hi</b>"},
		{"plain text untouched", "ما شاء الله 🎉", "ما شاء الله 🎉"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}
