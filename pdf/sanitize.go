package pdf

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// stripTags flattens rich-text HTML into plain text for layout. Block
// tags become spaces so adjacent paragraphs don't run together, and
// entities are decoded back to their characters.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') && !strings.ContainsRune(s, '&') {
		return s
	}
	out := tagPattern.ReplaceAllString(s, " ")
	out = html.UnescapeString(out)
	out = spacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
