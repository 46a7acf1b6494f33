// Package timespec parses the --since/--until values accepted by the CLI.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse resolves spec relative to the current time. See ParseAt.
func Parse(spec string) (int64, error) {
	return ParseAt(spec, time.Now())
}

// ParseAt resolves spec into a Unix timestamp in milliseconds. Accepted forms:
//   - RFC3339 timestamps: "2026-10-29T13:00:00Z"
//   - Go durations, meaning that long before now: "90m", "1h30m"
//   - whole days before now: "7d"
func ParseAt(spec string, now time.Time) (int64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if days, ok := strings.CutSuffix(spec, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return now.AddDate(0, 0, -n).UnixMilli(), nil
		}
	}

	if d, err := time.ParseDuration(spec); err == nil && d >= 0 {
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m', days like '7d' or RFC3339 like '2026-10-29T13:00:00Z')", spec)
}

// ParseRange parses --since and --until. Zero means no bound on that side.
func ParseRange(since, until string) (int64, int64, error) {
	now := time.Now()
	var sinceMs, untilMs int64
	var err error

	if since != "" {
		if sinceMs, err = ParseAt(since, now); err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if untilMs, err = ParseAt(until, now); err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMs > 0 && untilMs > 0 && sinceMs >= untilMs {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}
	return sinceMs, untilMs, nil
}
