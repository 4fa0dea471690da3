package processing

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var whitespace = regexp.MustCompile(`\s+`)

// articleNamespace scopes name-based article IDs.
var articleNamespace = uuid.MustParse("6f1c8b8e-3c2a-4d8e-9b57-1f0a2f4e6c11")

// NormalizeSpace trims the input and squeezes internal whitespace runs.
func NormalizeSpace(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(input, " "))
}

// BuildDocumentID hashes the stable fields of an article into a name-based UUID.
func BuildDocumentID(title string, ts time.Time) string {
	return uuid.NewSHA1(articleNamespace, []byte(title+"|"+ts.Format(time.RFC3339Nano))).String()
}

// ContainsKeyword reports whether keyword occurs in text, ignoring case.
// An empty keyword matches everything.
func ContainsKeyword(text, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// MainKeyword returns the first word of a query, used as its trend keyword.
func MainKeyword(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Slug replaces every whitespace rune with an underscore.
func Slug(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, s)
}

// Truncate shortens text to at most max runes, appending "..." when cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
