package history

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	tokenRe    = regexp.MustCompile(`[^\s"']+|"([^"]*)"|'([^']*)'`)
	barewordRe = regexp.MustCompile(`^[\p{L}\p{N}_]+$`)
)

// term is one piece of a search query.
type term struct {
	role   string // "", "user" or "assistant"
	text   string
	phrase bool
}

func parseTerms(input string) []term {
	var terms []term
	for _, token := range tokenRe.FindAllString(strings.TrimSpace(input), -1) {
		if strings.HasPrefix(token, `"`) || strings.HasPrefix(token, "'") {
			if text := strings.Trim(token, `"'`); text != "" {
				terms = append(terms, term{text: text, phrase: true})
			}
			continue
		}

		lower := strings.ToLower(token)
		switch {
		case strings.HasPrefix(lower, "user:"):
			terms = append(terms, term{role: "user", text: token[len("user:"):]})
		case strings.HasPrefix(lower, "ai:"), strings.HasPrefix(lower, "assistant:"):
			terms = append(terms, term{role: "assistant", text: token[strings.Index(token, ":")+1:]})
		default:
			terms = append(terms, term{text: token})
		}
	}
	return terms
}

func ftsWord(t term) string {
	if t.phrase || !barewordRe.MatchString(t.text) {
		return `"` + strings.ReplaceAll(t.text, `"`, `""`) + `"`
	}
	if len([]rune(t.text)) > 3 {
		return t.text + "*"
	}
	return t.text
}

// ParseQuery converts user input into FTS5 syntax.
// Supports: "phrase search", user:term, ai:term (or assistant:term), and
// prefix matching on plain words longer than three letters.
func ParseQuery(input string) string {
	var parts []string
	for _, t := range parseTerms(input) {
		switch {
		case t.role != "" && t.text != "":
			parts = append(parts, fmt.Sprintf("(role:%s AND content:%s)", t.role, ftsWord(t)))
		case t.role != "":
			parts = append(parts, "role:"+t.role)
		default:
			parts = append(parts, ftsWord(t))
		}
	}
	return strings.Join(parts, " AND ")
}

// likeQuery builds the WHERE clause used when FTS5 is missing.
func likeQuery(input string) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	for _, t := range parseTerms(input) {
		if t.role != "" {
			clauses = append(clauses, "role = ?")
			args = append(args, t.role)
		}
		if t.text != "" {
			clauses = append(clauses, "content LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(t.text)+"%")
		}
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// snippet cuts a preview of content around the first occurrence of word.
func snippet(content, word string, radius int) string {
	runes := []rune(content)
	at := indexFold(runes, []rune(word))
	if at < 0 {
		if len(runes) > 2*radius {
			return string(runes[:2*radius]) + "…"
		}
		return content
	}

	start, end := at-radius, at+len([]rune(word))+radius
	prefix, suffix := "…", "…"
	if start <= 0 {
		start, prefix = 0, ""
	}
	if end >= len(runes) {
		end, suffix = len(runes), ""
	}
	return prefix + string(runes[start:end]) + suffix
}

// indexFold is the rune offset of the first case-insensitive match of word
// in runes, or -1. Case mapping can change byte lengths, so it compares the
// original runes.
func indexFold(runes, word []rune) int {
	if len(word) == 0 {
		return -1
	}
	w := string(word)
	for i := 0; i+len(word) <= len(runes); i++ {
		if strings.EqualFold(string(runes[i:i+len(word)]), w) {
			return i
		}
	}
	return -1
}
