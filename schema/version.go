package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a MAJOR.MINOR.PATCH triple (§4.8).
type Version struct {
	Major, Minor, Patch int
}

// ParseVersion parses a "MAJOR.MINOR.PATCH" string.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("schema: malformed version %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("schema: malformed version %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// stable reports whether v's MINOR line is the even, stable line.
func (v Version) stable() bool {
	return v.Minor%2 == 0
}

// Compatible applies the §4.8 rule: file and runtime must agree on MAJOR
// and MINOR; on an even (stable) MINOR the file's PATCH may trail the
// runtime's; on an odd (development) MINOR the PATCH must match exactly.
func (file Version) Compatible(runtime Version) bool {
	if file.Major != runtime.Major || file.Minor != runtime.Minor {
		return false
	}
	if file.stable() {
		return file.Patch <= runtime.Patch
	}
	return file.Patch == runtime.Patch
}
