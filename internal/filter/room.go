// Package filter selects rooms for the roster listing.
package filter

import (
	"path/filepath"
	"strings"

	"github.com/dyluth/warren/pkg/world"
)

// Criteria defines filtering criteria for rooms.
// All filters are ANDed together; zero values match everything.
type Criteria struct {
	SinceTimestampMs int64  // minimum UpdatedAtMs
	UntilTimestampMs int64  // maximum UpdatedAtMs
	NameGlob         string // case-insensitive glob over the room name
	Tag              string // "key" requires the tag, "key=value" requires that value
}

// Matches reports whether room passes every criterion.
func (c *Criteria) Matches(room *world.Room) bool {
	if c.SinceTimestampMs > 0 && room.UpdatedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && room.UpdatedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.NameGlob != "" {
		matched, err := filepath.Match(strings.ToLower(c.NameGlob), strings.ToLower(room.Name))
		if err != nil || !matched {
			return false
		}
	}

	if c.Tag != "" {
		key, want, hasValue := strings.Cut(c.Tag, "=")
		got, ok := room.Tags[key]
		if !ok || (hasValue && got != want) {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filter is active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.NameGlob != "" ||
		c.Tag != ""
}

// Validate checks that the name glob is well formed.
func (c *Criteria) Validate() error {
	if c.NameGlob == "" {
		return nil
	}
	_, err := filepath.Match(c.NameGlob, "")
	return err
}
