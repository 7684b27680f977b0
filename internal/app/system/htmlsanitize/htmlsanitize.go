// Package htmlsanitize strips dangerous markup from user-supplied
// content before it is stored or rendered.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	once.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Globally()
		p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
		p.AllowElements("u", "s", "sub", "sup", "mark")
		rich = p
		strict = bluemonday.StrictPolicy()
	})
	return rich, strict
}

// Sanitize removes unsafe HTML (scripts, iframes, event handlers,
// javascript: URLs) while keeping common formatting: paragraphs,
// headings, lists, tables, links, and code blocks.
func Sanitize(s string) string {
	p, _ := policies()
	return p.Sanitize(s)
}

// SanitizeToHTML sanitizes and marks the result safe for templates.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// Plain strips all markup, returning the text content only. Entities
// escaped during stripping are decoded back, so the result is suitable
// for storage as plain text (chat bodies, names, join messages).
func Plain(s string) string {
	_, p := policies()
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(s)))
}

// IsPlainText reports whether s contains no HTML tags.
func IsPlainText(s string) bool {
	return Sanitize(s) == s && !strings.ContainsAny(s, "<>")
}
