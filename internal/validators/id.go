// Package validators checks identifiers supplied by platform requests before
// they are used as path segments in the working copy.
package validators

import (
	"fmt"
	"regexp"
	"strings"
)

const maxIDLength = 253

// idPattern starts and ends with an alphanumeric and allows dots, underscores
// and hyphens in between, which keeps IDs usable as a single directory name
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?$`)

// ValidateID checks that id can name a directory below the store root.
// kind names the identifier in error messages ("instance", "binding").
//
// Valid IDs include UUIDs ("f47ac10b-58cc-4372-a567-0e02b2c3d479") and
// platform names like "test-567" or "db_prod.1". Rejected are empty IDs,
// path separators, "." and "..", and IDs starting or ending with punctuation.
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s ID cannot be empty", kind)
	}
	if strings.TrimSpace(id) != id {
		return fmt.Errorf("%s ID %q must not have leading or trailing whitespace", kind, id)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%s ID exceeds maximum length of %d characters", kind, maxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf(
			"%s ID %q is invalid: it must start and end with an alphanumeric character "+
				"and may contain dots, underscores, and hyphens in the middle",
			kind, id,
		)
	}
	return nil
}

// IsValidID reports whether ValidateID accepts id
func IsValidID(id string) bool {
	return ValidateID("", id) == nil
}
