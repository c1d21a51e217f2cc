package subscription

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	defaultTitle   = "Untitled Feed"
	defaultWebsite = ""
)

type opmlDocument struct {
	XMLName xml.Name `xml:"opml"`
	Body    opmlBody `xml:"body"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Type     string        `xml:"type,attr"`
	Title    string        `xml:"title,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	HTMLURL  string        `xml:"htmlUrl,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

// ParseOPML extracts subscriptions from an OPML document. Every outline
// node, at any nesting depth, with type="rss" and a non-empty xmlUrl
// yields one subscription; missing titles get a placeholder.
func ParseOPML(data []byte) ([]Subscription, error) {
	var doc opmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	var subs []Subscription
	collectOutlines(doc.Body.Outlines, &subs)
	return subs, nil
}

func collectOutlines(outlines []opmlOutline, subs *[]Subscription) {
	for _, outline := range outlines {
		if outline.Type == "rss" && strings.TrimSpace(outline.XMLURL) != "" {
			sub := Subscription{
				Title:      strings.TrimSpace(outline.Title),
				FeedURL:    strings.TrimSpace(outline.XMLURL),
				WebsiteURL: strings.TrimSpace(outline.HTMLURL),
			}
			if sub.Title == "" {
				sub.Title = defaultTitle
			}
			if sub.WebsiteURL == "" {
				sub.WebsiteURL = defaultWebsite
			}
			*subs = append(*subs, sub)
		}
		collectOutlines(outline.Outlines, subs)
	}
}
