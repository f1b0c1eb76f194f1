package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"empty", "", ""},
		{"inline markup", "<b>bold</b> move", "bold move"},
		{"script removed with body", "hi<script>alert(1)</script>", "hi"},
		{"event handler", `<img src=x onerror="alert(1)">caption`, "caption"},
		{"comparison kept", "a < b && c > d", "a < b && c > d"},
		{"unicode", "größe ✏️", "größe ✏️"},
		{"entity encoded markup", "&lt;b&gt;bold&lt;/b&gt;", "bold"},
		{"ampersand kept", "fish &amp; chips", "fish & chips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.input))
		})
	}
}

func TestSanitizeText_EncodedScript(t *testing.T) {
	for _, input := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;",
		"&#60;img src=x onerror=alert(1)&#62;",
	} {
		t.Run(input, func(t *testing.T) {
			got := SanitizeText(input)
			assert.NotContains(t, got, "<script")
			assert.NotContains(t, got, "<img")
			assert.NotContains(t, got, "onerror=alert(1)>")
		})
	}
}

func TestSanitizeContentText(t *testing.T) {
	f := ContentFields{Type: ShapeText, Text: strPtr("<i>note</i>")}
	sanitizeContentText(&f)
	assert.Equal(t, "note", *f.Text)

	noText := ContentFields{Type: ShapeRectangle}
	sanitizeContentText(&noText)
	assert.Nil(t, noText.Text)
}
