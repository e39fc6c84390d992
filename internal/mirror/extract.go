package mirror

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type tagGroup struct {
	attr string
	tags []string
}

// extractionGroups is walked in order; output order depends on it.
var extractionGroups = []tagGroup{
	{attr: "href", tags: []string{"a", "link"}},
	{attr: "src", tags: []string{"img", "iframe", "audio", "source"}},
}

// Extractor scans markup for asset references admitted by a Filter.
type Extractor struct {
	filter *Filter
}

// NewExtractor returns an Extractor backed by filter.
func NewExtractor(filter *Filter) *Extractor {
	return &Extractor{filter: filter}
}

// Extract returns the in-scope asset URLs referenced by markup, deduplicated
// by exact string and in first-seen order. pageURL itself is never returned.
func (e *Extractor) Extract(markup string, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarkupParse, err)
	}

	assets := []string{}
	seen := make(map[string]struct{})
	for _, group := range extractionGroups {
		for _, tag := range group.tags {
			doc.Find(tag).Each(func(_ int, sel *goquery.Selection) {
				ref, ok := sel.Attr(group.attr)
				if !ok || ref == pageURL {
					return
				}
				if _, dup := seen[ref]; dup {
					return
				}
				// PDFs embedded in an iframe are linked content, not assets.
				if tag == "iframe" && strings.HasSuffix(ref, ".pdf") {
					return
				}
				if !e.filter.InScope(ref) {
					return
				}
				seen[ref] = struct{}{}
				assets = append(assets, ref)
			})
		}
	}
	return assets, nil
}
