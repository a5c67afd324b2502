// Package match implements the fuzzy text matching used by every search
// argument: normalization, token matching and hierarchical parent context.
package match

import (
	"regexp"
	"strings"
	"unicode"
)

var separators = regexp.MustCompile(`[_\-]+`)

// Normalize lowercases s, turns runs of '_' and '-' into a space, strips
// everything that is not a letter, digit or space, and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = separators.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// MatchAll reports whether query selects everything: empty, "all" or "*".
func MatchAll(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return q == "" || q == "all" || q == "*"
}

// Fuzzy reports whether query matches text. Any of these is enough:
// the normalized query is a substring of the normalized text; every query
// token appears in the text; the space-free query is a substring of the
// space-free text; the query tokens appear in order.
func Fuzzy(query, text string) bool {
	if MatchAll(query) {
		return true
	}
	q := Normalize(query)
	if q == "" {
		return false
	}
	t := Normalize(text)
	if strings.Contains(t, q) {
		return true
	}
	tokens := strings.Fields(q)
	all := true
	for _, tok := range tokens {
		if !strings.Contains(t, tok) {
			all = false
			break
		}
	}
	if all {
		return true
	}
	if strings.Contains(strings.ReplaceAll(t, " ", ""), strings.ReplaceAll(q, " ", "")) {
		return true
	}
	if len(tokens) > 1 {
		return ordered(tokens, t)
	}
	return false
}

// ordered checks tokens appear in order, the equivalent of the pattern
// "tok1.*tok2.*tok3".
func ordered(tokens []string, text string) bool {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}
	re, err := regexp.Compile(strings.Join(quoted, ".*"))
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// SearchContext joins values into one searchable string. When parentName is
// set it is appended both bare and as "under <parent>".
func SearchContext(values []string, parentName string) string {
	parts := make([]string, 0, len(values)+2)
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	if parentName != "" {
		parts = append(parts, parentName, "under "+parentName)
	}
	return strings.Join(parts, " ")
}

// Fields matches query against the joined values plus optional parent context.
func Fields(values []string, query, parentName string) bool {
	if MatchAll(query) {
		return true
	}
	return Fuzzy(query, SearchContext(values, parentName))
}
