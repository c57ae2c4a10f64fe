package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/rjrizani/zyte-api-training/internal/collect"
	"github.com/rjrizani/zyte-api-training/internal/model"
)

// Field maps one record field to a selector inside an item.
type Field struct {
	Name string
	// Selector is relative to the item. Empty means the item itself.
	Selector string
	// Attr reads an attribute instead of the text.
	Attr string
	// Multi collects every match into a []string.
	Multi bool
	// StripQuotes removes surrounding quote marks from the text.
	StripQuotes bool
	// Absolute resolves the value as a URL against the page URL.
	Absolute bool
	// Required skips the item when the value is empty.
	Required bool
}

// HTML extracts records from rendered HTML with CSS selectors.
type HTML struct {
	ItemSelector string
	Fields       []Field
	// NextSelector locates the next-page link. Empty disables paging.
	NextSelector string
	// NextAttr is the attribute holding the next locator. Default: href.
	NextAttr string
}

// Extract implements collect.Extractor.
func (h *HTML) Extract(page *model.Page) collect.Extraction[model.Record] {
	var ext collect.Extraction[model.Record]

	src := page.HTML
	if src == "" {
		src = string(page.Body)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		zap.L().Warn("extract: parse html", zap.String("url", page.URL), zap.Error(err))
		return ext
	}

	doc.Find(h.ItemSelector).Each(func(i int, item *goquery.Selection) {
		rec, ok := h.record(page.URL, item)
		if !ok {
			ext.Skipped++
			zap.L().Debug("extract: skipping item with missing required field",
				zap.String("url", page.URL),
				zap.Int("index", i),
			)
			return
		}
		ext.Records = append(ext.Records, rec)
	})

	if h.NextSelector != "" {
		attr := h.NextAttr
		if attr == "" {
			attr = "href"
		}
		if next, ok := doc.Find(h.NextSelector).First().Attr(attr); ok {
			ext.Next = resolve(page.URL, strings.TrimSpace(next))
		}
	}
	return ext
}

func (h *HTML) record(pageURL string, item *goquery.Selection) (model.Record, bool) {
	rec := make(model.Record, len(h.Fields))
	for _, f := range h.Fields {
		sel := item
		if f.Selector != "" {
			sel = item.Find(f.Selector)
		}

		if f.Multi {
			var values []string
			sel.Each(func(_ int, s *goquery.Selection) {
				if v := f.value(pageURL, s); v != "" {
					values = append(values, v)
				}
			})
			if f.Required && len(values) == 0 {
				return nil, false
			}
			if values == nil {
				values = []string{}
			}
			rec[f.Name] = values
			continue
		}

		v := f.value(pageURL, sel.First())
		if f.Required && v == "" {
			return nil, false
		}
		rec[f.Name] = v
	}
	return rec, true
}

func (f Field) value(pageURL string, s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	var v string
	if f.Attr != "" {
		v, _ = s.Attr(f.Attr)
	} else {
		v = s.Text()
	}
	v = cleanText(v)
	if f.StripQuotes {
		v = stripQuotes(v)
	}
	if f.Absolute {
		v = resolve(pageURL, v)
	}
	return v
}
