// Package htmlsanitize strips markup from text that arrives from outside the
// application (the upstream statistics API) before it reaches views or JSON.
// It uses bluemonday's strict policy, which removes every element and keeps
// only the text content.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// policy is the shared strict policy; bluemonday policies are safe for
	// concurrent use once built.
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// PlainText removes all markup from s and returns the remaining text.
//
// bluemonday escapes entities in its output; they are unescaped again here
// because the result is plain text that html/template escapes on render.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	if !HasMarkup(s) {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(s)))
}

// HasMarkup reports whether s looks like it contains HTML tags.
// Valid tags require both '<' and '>', so text missing either is treated as plain.
func HasMarkup(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}
