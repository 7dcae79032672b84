package collab

import "regexp"

var multiNewline = regexp.MustCompile(`\n{3,}`)

// NormalizeContent collapses runs of three or more newlines down to exactly
// two. Applied by the gateway before an edit is broadcast or persisted; the
// transform is idempotent.
func NormalizeContent(content string) string {
	return multiNewline.ReplaceAllString(content, "\n\n")
}
