// Package output writes collected records to timestamped JSON files.
package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const timestampLayout = "20060102_150405"

// Metadata describes the run that produced a result file.
type Metadata struct {
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
	Steps     int       `json:"steps"`
	Recipe    string    `json:"recipe"`
}

// Document is the on-disk shape of a result file.
type Document[R any] struct {
	Records  []R      `json:"records"`
	Metadata Metadata `json:"metadata"`
}

// Writer writes result files into Dir.
type Writer struct {
	Dir string
	now func() time.Time
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, now: time.Now}
}

// Write stores records under a name derived from prefix and the current time
// and returns the path. Nothing is written for an empty result; the returned
// path is then "".
func Write[R any](w *Writer, prefix string, records []R, meta Metadata) (string, error) {
	if len(records) == 0 {
		zap.L().Info("output: no records, skipping file", zap.String("prefix", prefix))
		return "", nil
	}

	now := w.now()
	meta.Count = len(records)
	meta.Timestamp = now

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "output: create dir %s", w.Dir)
	}

	data, err := json.MarshalIndent(Document[R]{Records: records, Metadata: meta}, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "output: marshal")
	}

	path := filepath.Join(w.Dir, FileName(prefix, now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "output: write %s", path)
	}

	zap.L().Info("output: saved records",
		zap.String("path", path),
		zap.Int("count", len(records)),
	)
	return path, nil
}

// FileName returns "<prefix>_<YYYYMMDD_HHMMSS>.json".
func FileName(prefix string, at time.Time) string {
	if prefix == "" {
		prefix = "results"
	}
	return prefix + "_" + at.Format(timestampLayout) + ".json"
}

// Prefix derives a file prefix from a recipe name and its parameters, e.g.
// "quotes-search" with author=Albert Einstein gives
// "quotes-search_albert_einstein". Parameter values are taken in key order.
func Prefix(recipe string, params map[string]string) string {
	parts := []string{slug(recipe)}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := slug(params[k]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "_")
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r == '/' || r == '\\' || r == ':' || r == os.PathSeparator:
			return '-'
		}
		return r
	}, s)
	return s
}
