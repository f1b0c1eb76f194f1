package api

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// textPolicy strips all markup from text shapes. bluemonday policies are
// safe for concurrent use after creation.
var textPolicy = bluemonday.StrictPolicy()

// maxSanitizePasses bounds how many layers of entity encoding are peeled
const maxSanitizePasses = 4

// SanitizeText removes HTML from a text payload and returns plain text.
// The strict policy escapes what it keeps, so its output is decoded and
// sanitized again until it stops changing. Markup hidden behind entity
// encoding is stripped on a later pass. Input that is still changing after
// the last pass is returned in escaped form.
func SanitizeText(text string) string {
	if text == "" {
		return text
	}
	current := text
	for range maxSanitizePasses {
		next := html.UnescapeString(textPolicy.Sanitize(current))
		if next == current {
			return next
		}
		current = next
	}
	return textPolicy.Sanitize(current)
}

func sanitizeContentText(f *ContentFields) {
	if f.Text == nil {
		return
	}
	clean := SanitizeText(*f.Text)
	f.Text = &clean
}
