package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

const keyFirmwareRelease = "FirmwareRelease"

// Version is a firmware release such as "5.7.1.4145".
type Version struct {
	Major int
	Minor int
	Patch int
	Build int

	raw string
}

// ParseVersion parses a dotted firmware string. Missing trailing components
// are zero; each component may carry a non-numeric suffix ("4145rc").
// The major component must be numeric.
func ParseVersion(s string) (Version, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, false
	}
	parts := strings.SplitN(s, ".", 4)
	var nums [4]int
	for i, p := range parts {
		n, ok := leadingInt(p)
		if !ok {
			if i == 0 {
				return Version{}, false
			}
			break
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Build: nums[3], raw: s}, true
}

// VersionFromDeviceInfo extracts the firmware release from a device info
// payload. A missing or empty release yields nil.
func VersionFromDeviceInfo(data Object) *Version {
	if data == nil {
		return nil
	}
	v, ok := ParseVersion(data.Text(keyFirmwareRelease))
	if !ok {
		return nil
	}
	return &v
}

// Compare orders versions numerically on (major, minor, patch, build).
func (v Version) Compare(o Version) int {
	a := [4]int{v.Major, v.Minor, v.Patch, v.Build}
	b := [4]int{o.Major, o.Minor, o.Patch, o.Build}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v >= major.minor.
func (v Version) AtLeast(major, minor int) bool {
	return v.Compare(Version{Major: major, Minor: minor}) >= 0
}

func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
