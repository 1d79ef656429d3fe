// Package validate holds the field rules and text sanitization that gate
// every proposal and message mutation. Everything here is pure; callers
// sanitize first, then validate the sanitized value, then write.
package validate

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/collablink/collab-comms/src/api/types"
)

// Field length rules, counted in runes after trimming.
const (
	SubjectMin  = 5
	SubjectMax  = 200
	MessageMin  = 10
	MessageMax  = 5000
	BudgetMax   = 100
	TimelineMax = 500
	ResponseMax = 2000
	ThreadMin   = 1
	ThreadMax   = 2000
	AttNameMax  = 255
	AttURLMax   = 2000
)

var (
	policy     = bluemonday.StrictPolicy()
	whitespace = regexp.MustCompile(`\s+`)
	angles     = strings.NewReplacer("<", " ", ">", " ")
)

// Sanitize strips all markup from free text, resolves entities, drops any
// remaining angle brackets and collapses runs of whitespace. Idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x), and the result never contains
// '<' or '>'.
//
// The pipeline runs to a fixed point: UnescapeString peels one entity
// level per pass, so double-escaped input like "&amp;lt;b&amp;gt;" needs
// several passes before nothing changes.
func Sanitize(s string) string {
	for {
		out := policy.Sanitize(s)
		out = html.UnescapeString(out)
		out = angles.Replace(out)
		out = whitespace.ReplaceAllString(out, " ")
		out = strings.TrimSpace(out)
		if out == s {
			return out
		}
		s = out
	}
}

// Summarize shortens sanitized text to maxLen runes, appending "..." when
// anything was cut. The result never exceeds maxLen+3 characters.
func Summarize(s string, maxLen int) string {
	s = Sanitize(s)
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}

func length(s string) int { return utf8.RuneCountInString(s) }

func Subject(s string) error {
	switch n := length(strings.TrimSpace(s)); {
	case n < SubjectMin:
		return types.Invalid("subject", "minimum 5 characters")
	case n > SubjectMax:
		return types.Invalid("subject", "maximum 200 characters")
	}
	return nil
}

func Message(s string) error {
	switch n := length(strings.TrimSpace(s)); {
	case n < MessageMin:
		return types.Invalid("message", "minimum 10 characters")
	case n > MessageMax:
		return types.Invalid("message", "maximum 5000 characters")
	}
	return nil
}

func BudgetRange(s string) error {
	if length(strings.TrimSpace(s)) > BudgetMax {
		return types.Invalid("budgetRange", "maximum 100 characters")
	}
	return nil
}

func Timeline(s string) error {
	if length(strings.TrimSpace(s)) > TimelineMax {
		return types.Invalid("timeline", "maximum 500 characters")
	}
	return nil
}

func ResponseMessage(s string) error {
	if length(strings.TrimSpace(s)) > ResponseMax {
		return types.Invalid("responseMessage", "maximum 2000 characters")
	}
	return nil
}

// ThreadContent checks a thread message body after sanitization.
func ThreadContent(s string) error {
	switch n := length(strings.TrimSpace(s)); {
	case n < ThreadMin:
		return types.Invalid("content", "message cannot be empty")
	case n > ThreadMax:
		return types.Invalid("content", "maximum 2000 characters")
	}
	return nil
}

// Attachment checks an optional single attachment reference. Both fields
// empty is fine; a url without a usable scheme is not.
func Attachment(rawURL, name string) error {
	if rawURL == "" && name == "" {
		return nil
	}
	if rawURL == "" {
		return types.Invalid("attachmentUrl", "attachment url is required")
	}
	if length(rawURL) > AttURLMax {
		return types.Invalid("attachmentUrl", "maximum 2000 characters")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.Invalid("attachmentUrl", "must be an http(s) url")
	}
	if length(name) > AttNameMax {
		return types.Invalid("attachmentName", "maximum 255 characters")
	}
	return nil
}
