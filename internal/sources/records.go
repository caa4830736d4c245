package sources

import (
	"strings"

	"github.com/spf13/cast"

	"ledgerbook/internal/core"
)

// Raw keys used by backends to scope records. They are not part of the
// normalized transaction.
var (
	UserKeys  = []string{"userId", "USER_ID"}
	GroupKeys = []string{"groupbId", "GROUPB_ID", "groupId"}
)

// Value returns the first non-blank value of keys in r as a trimmed string.
func Value(r core.RawRecord, keys []string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(cast.ToString(v))
		if s != "" {
			return s
		}
	}
	return ""
}

// IsPersonal reports whether r carries no group id, or the zero group id.
func IsPersonal(r core.RawRecord) bool {
	g := Value(r, GroupKeys)
	return g == "" || g == "0"
}

// Clone returns a shallow copy of r.
func Clone(r core.RawRecord) core.RawRecord {
	out := make(core.RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
