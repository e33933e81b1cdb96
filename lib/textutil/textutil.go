package textutil

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeSpace(text string) string {
	text = strings.Trim(text, " \n\t")
	return whitespaceRegex.ReplaceAllString(text, " ")
}

// interaction chrome rendered inside post containers, in the languages
// the markup is known to ship with
var uiNoiseTokens = []string{
	"like", "comment", "share", "reply", "react",
	"j'aime", "commenter", "partager", "répondre", "réagir",
	"see more", "see less", "en voir plus", "en voir moins",
	"write a comment", "écrivez un commentaire",
	"view more comments", "view previous comments",
}

// IsUINoise reports whether text is an interaction-button label rather
// than user content. It matches when the normalized text equals or
// starts with a known token.
func IsUINoise(text string) bool {
	text = strings.ToLower(NormalizeSpace(text))
	if text == "" {
		return false
	}
	for _, token := range uiNoiseTokens {
		if text == token || strings.HasPrefix(text, token) {
			return true
		}
	}
	return false
}

// CleanText removes blank and UI-noise lines from rendered element text
// and joins the rest with single spaces.
func CleanText(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || IsUINoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}

var countRegex = regexp.MustCompile(`\d[\d,.]*`)

// ExtractCount returns the first run of digits embedded in text with
// grouping separators stripped, or 0 when there is none.
func ExtractCount(text string) int {
	match := countRegex.FindString(text)
	if match == "" {
		return 0
	}
	match = strings.NewReplacer(",", "", ".", "").Replace(match)
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

const canonicalHost = "www.facebook.com"

var mobileHosts = map[string]bool{
	"m.facebook.com":      true,
	"touch.facebook.com":  true,
	"mbasic.facebook.com": true,
}

// CanonicalizeURL rewrites mobile hosts to the canonical desktop host and
// strips query parameters and fragments. Canonicalization is best-effort:
// input that does not parse as an absolute URL is returned unchanged.
func CanonicalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	if mobileHosts[u.Hostname()] {
		u.Host = canonicalHost
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return u.Scheme + "://" + u.Host + u.Path
}
