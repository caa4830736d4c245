package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var errInvalidBudget = errors.New("invalid budget")

// formatWon formats whole won as a grouped currency string (e.g., "1,500,000원").
func formatWon(amount int64) string {
	return humanize.Comma(amount) + "원"
}

// parseBudget reads the budget query parameter, falling back to def when
// absent. Separators such as "1,500,000" are accepted.
func parseBudget(r *http.Request, def int64) (int64, error) {
	raw := sanitizeInput(r.URL.Query().Get("budget"))
	if raw == "" {
		return def, nil
	}
	raw = strings.NewReplacer(",", "", "_", "", "원", "").Replace(raw)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidBudget, r.URL.Query().Get("budget"))
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
