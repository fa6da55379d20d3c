package versions

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidCount is returned when fewer than one version is requested.
var ErrInvalidCount = errors.New("count must be positive")

// SortMinors returns a copy of minors ("4.9", "4.12") in ascending version order.
func SortMinors(minors []string) []string {
	sorted := slices.Clone(minors)
	slices.SortStableFunc(sorted, func(a, b string) int {
		if c := semver.Compare("v"+a, "v"+b); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return sorted
}

// Latest returns the count highest minors in ascending order.
func Latest(minors []string, count int) ([]string, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	sorted := SortMinors(minors)
	if len(sorted) > count {
		return sorted[len(sorted)-count:], nil
	}
	return sorted, nil
}

// Earliest returns the count lowest minors in ascending order.
func Earliest(minors []string, count int) ([]string, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	sorted := SortMinors(minors)
	if len(sorted) > count {
		return sorted[:count], nil
	}
	return sorted, nil
}
