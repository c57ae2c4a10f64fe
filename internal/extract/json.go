package extract

import (
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/rjrizani/zyte-api-training/internal/collect"
	"github.com/rjrizani/zyte-api-training/internal/model"
)

// JSONField maps one record field to a gjson path inside an item.
type JSONField struct {
	Name     string
	Path     string
	Required bool
}

// JSON extracts records from JSON bodies: the network captures of a page
// when there are any, otherwise the page body.
type JSON struct {
	// RecordsPath selects the array of items, e.g. "quotes" or
	// "productGroupings.#.products.0".
	RecordsPath string
	// Fields project each item. Empty means the whole item is the record.
	Fields []JSONField
	// NextPath holds either a next URL or a has-next boolean.
	NextPath string
	// PageParam is the query parameter advanced when NextPath is a boolean.
	PageParam string
	// PageStep is added to PageParam per page. Default: 1.
	PageStep int
	// PageStart is the value of PageParam when the URL does not carry it.
	PageStart int
	// CaptureMeta adds capture_url, capture_method and capture_status.
	CaptureMeta bool
}

type jsonSource struct {
	body    []byte
	capture *model.Capture
}

// Extract implements collect.Extractor.
func (j *JSON) Extract(page *model.Page) collect.Extraction[model.Record] {
	var ext collect.Extraction[model.Record]

	var sources []jsonSource
	for i := range page.Captures {
		sources = append(sources, jsonSource{body: page.Captures[i].Body, capture: &page.Captures[i]})
	}
	if len(sources) == 0 {
		body := page.Body
		if len(body) == 0 {
			body = []byte(page.HTML)
		}
		sources = append(sources, jsonSource{body: body})
	}

	var last gjson.Result
	for _, src := range sources {
		if !gjson.ValidBytes(src.body) {
			ext.Skipped++
			zap.L().Debug("extract: skipping invalid json body", zap.String("url", page.URL))
			continue
		}
		doc := gjson.ParseBytes(src.body)
		last = doc

		items := doc
		if j.RecordsPath != "" {
			items = doc.Get(j.RecordsPath)
		}
		items.ForEach(func(_, item gjson.Result) bool {
			rec, ok := j.record(item)
			if !ok {
				ext.Skipped++
				return true
			}
			if j.CaptureMeta && src.capture != nil {
				rec["capture_url"] = src.capture.URL
				rec["capture_method"] = src.capture.Method
				rec["capture_status"] = src.capture.Status
			}
			ext.Records = append(ext.Records, rec)
			return true
		})
	}

	if j.NextPath != "" && last.Exists() {
		ext.Next = j.next(page.URL, last.Get(j.NextPath))
	}
	return ext
}

func (j *JSON) record(item gjson.Result) (model.Record, bool) {
	if len(j.Fields) == 0 {
		m, ok := item.Value().(map[string]any)
		if !ok {
			return nil, false
		}
		return model.Record(m), true
	}

	rec := make(model.Record, len(j.Fields))
	for _, f := range j.Fields {
		v := item.Get(f.Path)
		if !v.Exists() || v.Type == gjson.Null {
			if f.Required {
				return nil, false
			}
			rec[f.Name] = nil
			continue
		}
		if v.Type == gjson.String {
			rec[f.Name] = cleanText(v.String())
			continue
		}
		rec[f.Name] = v.Value()
	}
	return rec, true
}

func (j *JSON) next(pageURL string, v gjson.Result) string {
	switch v.Type {
	case gjson.True:
		return j.advancePage(pageURL)
	case gjson.String:
		return resolve(pageURL, v.String())
	default:
		return ""
	}
}

// advancePage returns pageURL with PageParam moved forward one page.
func (j *JSON) advancePage(pageURL string) string {
	if j.PageParam == "" {
		return ""
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	step := j.PageStep
	if step == 0 {
		step = 1
	}

	q := u.Query()
	cur := j.PageStart
	if raw := q.Get(j.PageParam); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return ""
		}
		cur = n
	}
	q.Set(j.PageParam, strconv.Itoa(cur+step))
	u.RawQuery = q.Encode()
	return u.String()
}
