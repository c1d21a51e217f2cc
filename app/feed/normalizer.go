package feed

import (
	"strings"
	"time"
)

// dateFormats are tried in order; the first successful parse wins.
var dateFormats = []string{
	time.RFC1123Z,               // RFC 822 with numeric zone
	time.RFC1123,                // RFC 822 with named zone (GMT et al.)
	time.RFC3339,                // ISO 8601
	"Mon, 02 Jan 2006 15:04:05", // RFC 822 without zone
}

// Normalizer canonicalizes raw items into entries. Items whose
// identifier resolves to empty after trimming are unrepresentable and
// are dropped, not reported as an error.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run converts a raw item. The second return value is false when the
// item has no usable identifier.
func (n *Normalizer) Run(item Item) (Entry, bool) {
	id := strings.TrimSpace(item.GUID)
	if id == "" {
		id = strings.TrimSpace(item.Link)
	}
	if id == "" {
		return Entry{}, false
	}

	entry := Entry{
		ID:          id,
		Title:       strings.TrimSpace(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Description: strings.TrimSpace(item.Description),
		PublishedAt: ParseDate(item.PubDate),
	}

	return entry, true
}

// ParseDate tries the known feed date formats in order. Unparseable
// input yields nil: an entry without a date is kept and sorts earliest.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return &t
		}
	}

	return nil
}
