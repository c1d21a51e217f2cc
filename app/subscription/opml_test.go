package subscription

import (
	"testing"
)

func TestParseOPML(t *testing.T) {
	opml := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="1.0">
  <head><title>Feeds</title></head>
  <body>
    <outline type="rss" title="Feed One" xmlUrl="https://one.example.com/rss" htmlUrl="https://one.example.com"/>
    <outline type="rss" xmlUrl="https://two.example.com/rss"/>
    <outline type="link" title="Not A Feed" xmlUrl="https://ignored.example.com/rss"/>
    <outline type="rss" title="No URL"/>
  </body>
</opml>`

	subs, err := ParseOPML([]byte(opml))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(subs) != 2 {
		t.Fatalf("Expected 2 subscriptions, got: %d", len(subs))
	}

	if subs[0].Title != "Feed One" {
		t.Errorf("Expected title 'Feed One', got: %s", subs[0].Title)
	}
	if subs[0].FeedURL != "https://one.example.com/rss" {
		t.Errorf("Expected feed URL, got: %s", subs[0].FeedURL)
	}
	if subs[0].WebsiteURL != "https://one.example.com" {
		t.Errorf("Expected website URL, got: %s", subs[0].WebsiteURL)
	}

	if subs[1].Title != "Untitled Feed" {
		t.Errorf("Expected placeholder title, got: %s", subs[1].Title)
	}
	if subs[1].WebsiteURL != "" {
		t.Errorf("Expected empty website, got: %s", subs[1].WebsiteURL)
	}
}

func TestParseOPMLNestedOutlines(t *testing.T) {
	opml := `<?xml version="1.0"?>
<opml version="1.0">
  <body>
    <outline title="Science">
      <outline type="rss" title="Nested Feed" xmlUrl="https://nested.example.com/rss"/>
      <outline title="Deeper">
        <outline type="rss" title="Deep Feed" xmlUrl="https://deep.example.com/rss"/>
      </outline>
    </outline>
  </body>
</opml>`

	subs, err := ParseOPML([]byte(opml))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("Expected 2 nested subscriptions, got: %d", len(subs))
	}
	if subs[0].Title != "Nested Feed" || subs[1].Title != "Deep Feed" {
		t.Errorf("Expected nested feeds in document order, got: %+v", subs)
	}
}

func TestParseOPMLInvalid(t *testing.T) {
	if _, err := ParseOPML([]byte("not opml")); err == nil {
		t.Error("Expected error for invalid OPML")
	}
}
