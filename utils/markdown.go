package utils

import "strings"

var markdownEscaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[",
)

// EscapeMarkdown escapes user-provided text for legacy Markdown messages.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
