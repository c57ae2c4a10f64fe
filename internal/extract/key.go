package extract

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/rjrizani/zyte-api-training/internal/collect"
	"github.com/rjrizani/zyte-api-training/internal/model"
)

// keySep joins field values; it cannot appear in cleaned text.
const keySep = "\x1f"

// Key returns a KeyFunc identifying records by the given fields. A record
// with all key fields empty has no identity.
func Key(fields ...string) collect.KeyFunc[model.Record, string] {
	return func(r model.Record) (string, error) {
		parts := make([]string, len(fields))
		var found bool
		for i, f := range fields {
			parts[i] = r.String(f)
			if parts[i] != "" {
				found = true
			}
		}
		if !found {
			return "", eris.Errorf("record has no value for key fields %v", fields)
		}
		return strings.Join(parts, keySep), nil
	}
}
