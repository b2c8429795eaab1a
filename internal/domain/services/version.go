package services

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionStamp is the validated version/release pair stamped onto a build's
// outputs and package file name.
type VersionStamp struct {
	Version string // e.g. 2.0.0 (prerelease kept, v prefix stripped)
	Release int    // monotonically increasing build number
}

// StampVersion validates a raw version string and pairs it with the build
// number.
//
// The version must parse as semver; the build stage refuses to package
// something it cannot version.
func StampVersion(raw string, buildNumber int) (VersionStamp, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return VersionStamp{}, fmt.Errorf("version string is empty")
	}
	if buildNumber < 1 {
		return VersionStamp{}, fmt.Errorf("build number must be >= 1, got %d", buildNumber)
	}

	v, err := semver.NewVersion(trimmed)
	if err != nil {
		return VersionStamp{}, fmt.Errorf("invalid version %q: %w", trimmed, err)
	}

	return VersionStamp{Version: v.String(), Release: buildNumber}, nil
}

// PackageFileName returns the conventional package file name for the stamp
func (s VersionStamp) PackageFileName(name, dist, arch string) string {
	return fmt.Sprintf("%s-%s-%d.%s.%s.rpm", name, s.Version, s.Release, dist, arch)
}

// String renders the stamp as version-release
func (s VersionStamp) String() string {
	return fmt.Sprintf("%s-%d", s.Version, s.Release)
}
