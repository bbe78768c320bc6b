package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a metadata format or ABI version.
type Version struct {
	Major, Minor, Patch int
}

var (
	// CurrentVersion is the metadata format version this reader understands.
	CurrentVersion = Version{2, 1, 0}
	// CurrentABI is the binary interface version this reader understands.
	CurrentABI = Version{1, 0, 0}
)

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsCompatible reports whether data written with version v can be read by
// a reader at current: majors must match and v.Minor must not be newer.
func (v Version) IsCompatible(current Version) bool {
	return v.Major == current.Major && v.Minor <= current.Minor
}

func (v Version) ints() []int32 {
	return []int32{int32(v.Major), int32(v.Minor), int32(v.Patch)}
}

func versionOf(parts []int32) Version {
	var v Version
	if len(parts) > 0 {
		v.Major = int(parts[0])
	}
	if len(parts) > 1 {
		v.Minor = int(parts[1])
	}
	if len(parts) > 2 {
		v.Patch = int(parts[2])
	}
	return v
}

// ParseVersion parses "major.minor[.patch]".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		nums[i] = n
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}
