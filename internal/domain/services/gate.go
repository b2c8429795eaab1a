// Package services implements domain logic for pipeline scheduling and
// reporting.
package services

import "strings"

// skipMarkers are the literal tags that suppress a pipeline run when present
// in the commit message or pull-request title. Each marker is matched in both
// its bracket-space and bracket-dash form, case-sensitive.
var skipMarkers = []string{
	"[skip ci]", "[skip-ci]",
	"[ci skip]", "[ci-skip]",
	"[no ci]", "[no-ci]",
}

// SkipGate decides whether a run should bypass its jobs
type SkipGate struct{}

// NewSkipGate creates a skip gate
func NewSkipGate() *SkipGate {
	return &SkipGate{}
}

// ShouldSkip reports whether the text carries a skip marker, and which one
// matched
func (g *SkipGate) ShouldSkip(text string) (bool, string) {
	for _, marker := range skipMarkers {
		if strings.Contains(text, marker) {
			return true, marker
		}
	}
	return false, ""
}

// Markers returns the recognized skip markers
func (g *SkipGate) Markers() []string {
	out := make([]string, len(skipMarkers))
	copy(out, skipMarkers)
	return out
}
