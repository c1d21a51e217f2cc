package notify

import (
	"fmt"
	"strings"

	"rssalert/app/feed"
	"rssalert/app/subscription"
)

const digestDateFormat = "2006-01-02 15:04:05"

// Composer formats one digest message per feed. Output is
// deterministic: the same subscription and entry list always produce
// byte-identical text.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Run builds the digest subject and body. Entries are rendered in the
// order given; the runner hands them over sorted newest-first.
func (c *Composer) Run(sub subscription.Subscription, entries []feed.Entry) (string, string) {
	subject := fmt.Sprintf("%d new articles in %s", len(entries), sub.Title)

	var body strings.Builder
	fmt.Fprintf(&body, "New articles in %s:\n\n", sub.Title)
	fmt.Fprintf(&body, "Feed Website: %s\n\n", sub.WebsiteURL)

	for _, entry := range entries {
		dateStr := "Unknown date"
		if entry.PublishedAt != nil {
			dateStr = entry.PublishedAt.Format(digestDateFormat)
		}

		fmt.Fprintf(&body, "Title: %s\n", entry.Title)
		fmt.Fprintf(&body, "Published: %s\n", dateStr)
		fmt.Fprintf(&body, "Link: %s\n\n", entry.Link)
	}

	return subject, body.String()
}
