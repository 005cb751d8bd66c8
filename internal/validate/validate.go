package validate

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// MaxNameLen bounds product names shown in the catalog.
const MaxNameLen = 100

// ImageExts is the upload whitelist (raster formats only).
var ImageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Name validates a product name: trimmed, non-empty, bounded.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len([]rune(s)) > MaxNameLen {
		return "", false
	}
	return s, true
}

// Price parses a non-negative whole-Rupiah amount. Thousands separators are tolerated.
func Price(s string) (int64, bool) {
	s = strings.NewReplacer(",", "", ".", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Count parses a non-negative integer (stock levels, raw quantities).
func Count(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Qty parses an order quantity and clamps it to [0, max]; garbage reads as 0.
func Qty(s string, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

// ID validates a product identifier.
func ID(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil && n > 0
}

// ImageFile checks the upload name against the whitelist.
func ImageFile(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return ImageExts[strings.ToLower(filepath.Ext(name))]
}

// Key validates an idempotency key (UUID form).
func Key(s string) (string, bool) {
	s = strings.TrimSpace(s)
	u, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
