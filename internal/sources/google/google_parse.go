package google

import (
	"fmt"
	"strings"

	"ledgerbook/internal/core"
)

// parseRows turns a values matrix into records keyed by the header row.
// Blank header cells drop their column; rows with no values are skipped.
func parseRows(values [][]interface{}) []core.RawRecord {
	if len(values) == 0 {
		return nil
	}
	headers := toStrings(values[0])
	var out []core.RawRecord
	for _, row := range values[1:] {
		rec := core.RawRecord{}
		for i, v := range row {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			rec[headers[i]] = v
		}
		if len(rec) == 0 {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
