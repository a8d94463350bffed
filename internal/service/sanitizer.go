package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips unsafe markup from user-supplied text before it is stored.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer uses bluemonday's UGC policy: basic formatting survives,
// scripts, event handlers and javascript: URLs do not.
func NewSanitizer() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &Sanitizer{policy: p}
}

// Clean returns text unchanged unless the policy removes or rewrites markup
// in it, in which case the sanitized form is returned. Escaping alone does
// not count as a change, so "1 < 2 & it's true" is stored as sent.
// Whitespace is never trimmed.
func (s *Sanitizer) Clean(text string) string {
	if !strings.ContainsAny(text, "<>") {
		return text
	}
	safe := s.policy.Sanitize(text)
	if html.UnescapeString(safe) == text {
		return text
	}
	return safe
}
