package feed

import (
	"time"
)

// Feed processing types

// Metadata describes the feed document itself, as far as it could be
// recovered. All fields may be empty for badly broken documents.
type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// Item is a raw entry as extracted from the document, before
// normalization. Field values are trimmed but otherwise untouched;
// GUID may be empty.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	PubDate     string // raw date string, parsed by the normalizer

	// RDF/Dublin Core/PRISM extras, present only for namespace-qualified items
	DOI     string
	Authors []string
	Journal string
}

// Entry is a normalized item ready for dedup and notification.
// ID is always non-empty.
type Entry struct {
	ID          string
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time // nil when no date format matched
}
