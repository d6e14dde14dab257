// Package versions provides semantic version helpers used to pick between several
// registered versions of the same route, and the build version of the binary.
package versions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrInvalidConstraint is returned when a requested version range cannot be parsed.
	ErrInvalidConstraint = errors.New("invalid version constraint")

	// ErrNoMatchingVersion is returned when no available version satisfies a request.
	ErrNoMatchingVersion = errors.New("no matching version")
)

// IsNewerVersion reports whether newVersion is strictly greater than oldVersion.
// Both strings are compared as semver when they parse, lexicographically otherwise.
func IsNewerVersion(newVersion, oldVersion string) bool {
	newSemver, errNew := semver.NewVersion(newVersion)
	oldSemver, errOld := semver.NewVersion(oldVersion)

	if errNew != nil || errOld != nil {
		return newVersion > oldVersion
	}

	return newSemver.GreaterThan(oldSemver)
}

// Select returns the highest entry of available that satisfies accept.
// An empty accept (or "*") selects the highest available version.
// accept may be an exact version ("1.0.0") or any range understood by
// Masterminds/semver ("~1.2", "^2", "1.x", ">= 1.0, < 3").
func Select(available []string, accept string) (string, error) {
	if len(available) == 0 {
		return "", ErrNoMatchingVersion
	}

	accept = strings.TrimSpace(accept)
	if accept == "" || accept == "*" {
		return highest(available), nil
	}

	constraint, err := semver.NewConstraint(accept)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidConstraint, accept, err)
	}

	var (
		best    string
		bestVer *semver.Version
	)
	for _, candidate := range available {
		v, err := semver.NewVersion(candidate)
		if err != nil {
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = candidate, v
		}
	}

	if bestVer == nil {
		return "", fmt.Errorf("%w: %q", ErrNoMatchingVersion, accept)
	}
	return best, nil
}

func highest(available []string) string {
	best := available[0]
	for _, candidate := range available[1:] {
		if IsNewerVersion(candidate, best) {
			best = candidate
		}
	}
	return best
}
