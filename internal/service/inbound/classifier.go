package inbound

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type Intent int

const (
	IntentUnclassified Intent = iota
	IntentAffirmative
	IntentDecline
)

func (i Intent) String() string {
	switch i {
	case IntentAffirmative:
		return "affirmative"
	case IntentDecline:
		return "decline"
	default:
		return "unclassified"
	}
}

// Affirmative patterns are checked first, one clause at a time. A clause
// that also carries a negation ("not sure i can", "i can't confirm") is
// never affirmative.
var affirmativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\byes\b`),
	regexp.MustCompile(`\bconfirmed\b`),
	regexp.MustCompile(`\bi confirm\b`),
	regexp.MustCompile(`\bi can(?:[\s.,!]|$)`),
	regexp.MustCompile(`\bi(?:'m| am) available\b`),
	regexp.MustCompile(`\bcount me in\b`),
	regexp.MustCompile(`\bi will (?:come|donate|be there)\b`),
	regexp.MustCompile(`\bi'll (?:come|donate|be there)\b`),
	regexp.MustCompile(`\bon my way\b`),
}

var negation = regexp.MustCompile(`\b(?:not|no|don't|do not|doesn't|won't|will not|cannot|can't|unable|never)\b`)

var clauseBreak = regexp.MustCompile(`[.,;:!?\n]+|\bbut\b`)

var declinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bno\b`),
	regexp.MustCompile(`\bsorry\b`),
	regexp.MustCompile(`\bunavailable\b`),
	regexp.MustCompile(`\bnot\b`),
	regexp.MustCompile(`\bdecline[ds]?\b`),
	regexp.MustCompile(`\bcan(?:'t|not)\b`),
	regexp.MustCompile(`\b(?:don't|won't|never)\b`),
	regexp.MustCompile(`\bunable\b`),
}

var quoteMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^on\s[^\n]*(?:\n[^\n]*)?wrote:\s*$`),
	regexp.MustCompile(`(?im)^-+\s*original message\s*-+`),
	regexp.MustCompile(`(?im)^from:\s.+$`),
}

var canNot = regexp.MustCompile(`\bcan\s+not\b`)

// ClassifyIntent decides what a reply body means.
func ClassifyIntent(body string) Intent {
	text := normalize(body)
	for _, clause := range clauseBreak.Split(text, -1) {
		if affirmative(clause) {
			return IntentAffirmative
		}
	}
	for _, p := range declinePatterns {
		if p.MatchString(text) {
			return IntentDecline
		}
	}
	return IntentUnclassified
}

func affirmative(clause string) bool {
	if negation.MatchString(clause) {
		return false
	}
	for _, p := range affirmativePatterns {
		if p.MatchString(clause) {
			return true
		}
	}
	return false
}

// normalize lowercases, folds typographic apostrophes, joins "can not" and
// drops quoted text.
func normalize(body string) string {
	text := strings.ToLower(ReplyText(body))
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	return canNot.ReplaceAllString(text, "cannot")
}

// ReplyText is the body without quoted history: "> " lines and everything
// after a reply marker are removed.
func ReplyText(body string) string {
	text := strings.ReplaceAll(body, "\r\n", "\n")
	cut := len(text)
	for _, m := range quoteMarkers {
		if loc := m.FindStringIndex(text); loc != nil && loc[0] < cut {
			cut = loc[0]
		}
	}
	text = text[:cut]

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Truncate caps s at max runes.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
