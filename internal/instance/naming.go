// Package instance validates world instance names. The instance name
// namespaces every Redis key and channel of a world.
package instance

import (
	"fmt"
	"regexp"
)

// MaxNameLength is the maximum length for an instance name.
const MaxNameLength = 63

// NamePattern matches valid instance names: lowercase alphanumeric, with
// hyphens or underscores allowed between characters. Colons are excluded
// because they separate the segments of a Redis key.
var NamePattern = regexp.MustCompile(`^[a-z0-9]([-_a-z0-9]*[a-z0-9])?$`)

// ValidateName checks if an instance name can be used as a key namespace.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens or underscores (not at start/end)", name)
	}

	return nil
}
