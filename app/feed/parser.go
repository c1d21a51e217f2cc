package feed

import (
	"bytes"
	"encoding/xml"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
)

// Namespaces used by RSS 1.0 (RDF-based) feeds and their common
// metadata extensions.
const (
	nsRSS10 = "http://purl.org/rss/1.0/"
	nsDC    = "http://purl.org/dc/elements/1.1/"
	nsPrism = "http://prismstandard.org/namespaces/1.2/basic/"
)

var (
	// Characters illegal in XML 1.0 that real-world feeds contain anyway.
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	// A known publisher artifact: a stray closing brace floated away from
	// its style block.
	strayStyleBrace = regexp.MustCompile(`}\s*</style>`)
)

// Parser extracts entries from possibly malformed feed documents. It
// never fails: structural errors degrade to a partial or empty result.
//
// Extraction runs in two passes over the same document, because
// real-world feeds mix dialects: a generic pass over every item element
// regardless of namespace, then a namespace-qualified pass over RSS 1.0
// items carrying Dublin Core and PRISM metadata. Entries found by both
// passes are kept twice; identifier-based deduplication downstream
// collapses them.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses the document and returns feed metadata plus raw items.
// Metadata may be nil when the document is too broken to identify.
func (p *Parser) Run(data []byte) (*Metadata, []Item) {
	data = p.repair(data)

	items := p.extractGenericItems(data)
	items = append(items, p.extractRDFItems(data)...)

	var metadata *Metadata
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Debug("Feed-level parse failed, continuing with extracted items", "error", err, "items", len(items))
	} else {
		metadata = &Metadata{
			Title:       strings.TrimSpace(parsed.Title),
			Link:        strings.TrimSpace(parsed.Link),
			Description: strings.TrimSpace(parsed.Description),
			Language:    strings.TrimSpace(parsed.Language),
		}

		// Atom documents carry entry elements, which neither item pass
		// sees. Adopt them only when the item passes found nothing, so
		// RSS documents are not double-counted here.
		if len(items) == 0 {
			items = p.adoptParsedItems(parsed)
		}
	}

	return metadata, items
}

// repair fixes known malformations before parsing: characters illegal
// in XML 1.0 and a stray brace before closing style tags.
func (p *Parser) repair(data []byte) []byte {
	data = controlChars.ReplaceAll(data, nil)
	data = strayStyleBrace.ReplaceAll(data, []byte("}</style>"))
	return data
}

// extractGenericItems walks every element named item, whatever its
// namespace, reading the plain RSS 2.0 field set.
func (p *Parser) extractGenericItems(data []byte) []Item {
	var items []Item

	p.walkItems(data, func(name xml.Name) bool {
		return name.Local == "item"
	}, func(fields []itemField) {
		item := Item{
			GUID:        coalesceField(fields, "guid", "link"),
			Title:       fieldText(fields, "", "title"),
			Link:        fieldText(fields, "", "link"),
			Description: fieldText(fields, "", "description"),
			PubDate:     fieldText(fields, "", "pubDate"),
		}
		if item.Title == "" {
			item.Title = "No Title"
		}
		items = append(items, item)
	})

	return items
}

// extractRDFItems walks RSS 1.0 items, resolving identifiers and dates
// through the Dublin Core and PRISM fallback chains.
func (p *Parser) extractRDFItems(data []byte) []Item {
	var items []Item

	p.walkItems(data, func(name xml.Name) bool {
		return name.Space == nsRSS10 && name.Local == "item"
	}, func(fields []itemField) {
		item := Item{
			GUID: firstNonEmpty(
				fieldText(fields, nsRSS10, "guid"),
				fieldText(fields, nsDC, "identifier"),
				fieldText(fields, nsRSS10, "link"),
			),
			Title:       fieldText(fields, nsRSS10, "title"),
			Link:        fieldText(fields, nsRSS10, "link"),
			Description: fieldText(fields, nsRSS10, "description"),
			PubDate: firstNonEmpty(
				fieldText(fields, "", "pubDate"),
				fieldText(fields, nsDC, "date"),
				fieldText(fields, nsPrism, "publicationDate"),
			),
			DOI:     fieldText(fields, nsPrism, "doi"),
			Journal: fieldText(fields, nsPrism, "publicationTitle"),
		}
		if item.Title == "" {
			item.Title = "No Title"
		}
		for _, f := range fields {
			if f.name.Space == nsDC && f.name.Local == "creator" && f.text != "" {
				item.Authors = append(item.Authors, f.text)
			}
		}
		items = append(items, item)
	})

	return items
}

// adoptParsedItems converts gofeed items (the Atom path) into raw items.
func (p *Parser) adoptParsedItems(parsed *gofeed.Feed) []Item {
	items := make([]Item, 0, len(parsed.Items))
	for _, gi := range parsed.Items {
		if gi == nil {
			continue
		}
		item := Item{
			GUID:        strings.TrimSpace(firstNonEmpty(gi.GUID, gi.Link)),
			Title:       strings.TrimSpace(gi.Title),
			Link:        strings.TrimSpace(gi.Link),
			Description: strings.TrimSpace(gi.Description),
			PubDate:     strings.TrimSpace(firstNonEmpty(gi.Published, gi.Updated)),
		}
		if item.Title == "" {
			item.Title = "No Title"
		}
		items = append(items, item)
	}
	return items
}

// itemField is one direct child of an item element: resolved name plus
// the concatenated, trimmed character data of its subtree.
type itemField struct {
	name xml.Name
	text string
}

// walkItems streams the document with a recovering decoder and invokes
// emit for every element accepted by match. Decoder errors end the walk
// without discarding items already collected.
func (p *Parser) walkItems(data []byte, match func(xml.Name) bool, emit func([]itemField)) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.CharsetReader = charset.NewReaderLabel

	for {
		token, err := decoder.Token()
		if err != nil {
			if err != io.EOF {
				slog.Debug("Stopping item scan on decoder error", "error", err)
			}
			return
		}

		start, ok := token.(xml.StartElement)
		if !ok || !match(start.Name) {
			continue
		}

		fields, err := p.captureItem(decoder, start)
		if len(fields) > 0 {
			emit(fields)
		}
		if err != nil {
			return
		}
	}
}

// captureItem consumes tokens until the item's end tag, collecting its
// direct children as fields.
func (p *Parser) captureItem(decoder *xml.Decoder, start xml.StartElement) ([]itemField, error) {
	var fields []itemField

	depth := 0
	var current *itemField
	var text strings.Builder

	for {
		token, err := decoder.Token()
		if err != nil {
			return fields, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				current = &itemField{name: t.Name}
				text.Reset()
			}
		case xml.EndElement:
			if depth == 0 {
				return fields, nil
			}
			depth--
			if depth == 0 && current != nil {
				current.text = strings.TrimSpace(text.String())
				fields = append(fields, *current)
				current = nil
			}
		case xml.CharData:
			if depth >= 1 {
				text.Write(t)
			}
		}
	}
}

func fieldText(fields []itemField, space, local string) string {
	for _, f := range fields {
		if f.name.Local != local {
			continue
		}
		if space == "" || f.name.Space == space {
			return f.text
		}
	}
	return ""
}

func coalesceField(fields []itemField, locals ...string) string {
	for _, local := range locals {
		if v := fieldText(fields, "", local); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
