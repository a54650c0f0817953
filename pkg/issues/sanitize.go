package issues

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	messagePolicyOnce sync.Once
	messagePolicy     *bluemonday.Policy
)

// entityDecoder restores the quote and ampersand entities bluemonday emits
// for plain text. Angle brackets stay escaped.
var entityDecoder = strings.NewReplacer(
	"&amp;", "&",
	"&#39;", "'",
	"&#34;", `"`,
	"&quot;", `"`,
)

// Sanitize strips markup from a server-provided message. Entities are decoded
// before the policy runs, so escaped tags are stripped like literal ones and
// the result never contains a raw angle bracket.
func Sanitize(message string) string {
	trimmed := strings.TrimSpace(html.UnescapeString(message))
	if trimmed == "" {
		return ""
	}
	cleaned := messageSanitizer().Sanitize(trimmed)
	return strings.TrimSpace(entityDecoder.Replace(cleaned))
}

// SanitizeRecord applies fn to every message and drops entries that end up
// empty. A nil fn returns a copy.
func SanitizeRecord(r Record, fn func(string) string) Record {
	out := make(Record, len(r))
	for key, msg := range r {
		if fn != nil {
			msg = fn(msg)
		}
		if msg == "" {
			continue
		}
		out[key] = msg
	}
	return out
}

func messageSanitizer() *bluemonday.Policy {
	messagePolicyOnce.Do(func() {
		messagePolicy = bluemonday.StrictPolicy()
	})
	return messagePolicy
}
