package watch

import (
	"fmt"
	"strings"
)

// ValidatePath verifies that a node path received from a client is valid.
func ValidatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path does not start at the root")
	}

	if path == "/" {
		return fmt.Errorf("path cannot be the root")
	}

	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("path should end in a node name, not a '/'")
	}

	names := strings.Split(path, "/")
	// Since we have a leading /, then we expect the first name to be empty.
	for _, name := range names[1:] {
		if name == "" {
			return fmt.Errorf("path contains an empty node name")
		}
	}
	return nil
}

// ValidateRootPath verifies a subscription root. Unlike node operations, a
// subscription may legitimately be rooted at the tree root itself.
func ValidateRootPath(path string) error {
	if path == "/" {
		return nil
	}
	return ValidatePath(path)
}
