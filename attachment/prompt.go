package attachment

import (
	"regexp"
	"strings"
)

var (
	atPathRe     = regexp.MustCompile(`(^|\s)@([\w/.~-]+)`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
)

// ParsePrompt extracts @path tokens from user input and returns the cleaned
// prompt together with the referenced paths. Tokens that accept rejects stay
// in the prompt as typed. A nil accept takes every token.
func ParsePrompt(input string, accept func(path string) bool) (string, []string) {
	matches := atPathRe.FindAllStringSubmatchIndex(input, -1)

	var b strings.Builder
	var paths []string
	last := 0
	for _, m := range matches {
		path := input[m[4]:m[5]]
		if accept != nil && !accept(path) {
			continue
		}
		paths = append(paths, path)
		// m[4]-1 is the '@'.
		b.WriteString(input[last : m[4]-1])
		last = m[5]
	}
	if len(paths) == 0 {
		return input, nil
	}
	b.WriteString(input[last:])

	cleaned := whitespaceRe.ReplaceAllString(b.String(), " ")
	return strings.TrimSpace(cleaned), paths
}
