// Package detector pkg/detector/versions.go compares version strings.
package detector

import (
	"strconv"
	"strings"
)

// parseVersion extracts the leading numeric segments of a version string.
// "v3.6.0-beta.1" parses as [3 6 0]; a string with no leading number does
// not parse.
func parseVersion(v string) ([]int, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return nil, false
	}

	var segments []int

	for _, part := range strings.Split(v, ".") {
		digits := part
		for i, r := range part {
			if r < '0' || r > '9' {
				digits = part[:i]
				break
			}
		}

		if digits == "" {
			break
		}

		n, err := strconv.Atoi(digits)
		if err != nil {
			break
		}

		segments = append(segments, n)
	}

	if len(segments) == 0 {
		return nil, false
	}

	return segments, true
}

// majorChanged reports whether the major version differs between two version
// strings. Unparseable versions compare as changed, so an odd scanner string
// is surfaced rather than silently dropped.
func majorChanged(oldVersion, newVersion string) bool {
	oldSegs, okOld := parseVersion(oldVersion)
	newSegs, okNew := parseVersion(newVersion)

	if !okOld || !okNew {
		return true
	}

	return oldSegs[0] != newSegs[0]
}

// minorChanged reports whether the minor segment differs between two version
// strings. Missing segments compare as zero, so "3" and "3.0.1" agree on the
// minor. Unparseable versions compare as changed.
func minorChanged(oldVersion, newVersion string) bool {
	oldSegs, okOld := parseVersion(oldVersion)
	newSegs, okNew := parseVersion(newVersion)

	if !okOld || !okNew {
		return true
	}

	return segment(oldSegs, 1) != segment(newSegs, 1)
}

func segment(segs []int, i int) int {
	if i < len(segs) {
		return segs[i]
	}

	return 0
}
