package model

import (
	"fmt"
	"strings"
)

// Record is one extracted item. Field names come from the recipe that
// produced it; the collector never looks inside.
type Record map[string]any

// String returns the field as a string, or "" when absent.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	default:
		return fmt.Sprint(t)
	}
}
