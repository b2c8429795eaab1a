package entities

import "time"

// Artifact represents a named, retained file set produced by one job and
// consumable by later jobs in the same run
type Artifact struct {
	Name          string
	RunID         string
	Files         []string          // paths relative to the artifact root
	Checksums     map[string]string // file -> sha256 hex
	CreatedAt     time.Time
	RetentionDays int
}

// ExpiresAt returns the end of the artifact's retention window
func (a *Artifact) ExpiresAt() time.Time {
	return a.CreatedAt.AddDate(0, 0, a.RetentionDays)
}

// Expired reports whether the artifact is past its retention window at now
func (a *Artifact) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt())
}
