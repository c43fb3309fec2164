package freshness

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

const (
	// AcquireAfterDays is how old stored data may get before source pages are scraped again
	AcquireAfterDays = 3
	// ExtractAfterDays is how old stored data may get before snapshots are re-extracted
	ExtractAfterDays = 1
)

// Artifact describes a cached file or table: whether it exists and when it last changed
type Artifact struct {
	Exists   bool
	Modified time.Time
}

// Missing is the artifact that does not exist
var Missing = Artifact{}

// At returns an existing artifact last modified at t
func At(t time.Time) Artifact {
	return Artifact{Exists: true, Modified: t}
}

// Stat describes the file at path
func Stat(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Missing, nil
	}
	if err != nil {
		return Missing, err
	}
	return At(info.ModTime()), nil
}

// Policy decides when cached artifacts must be refreshed
type Policy struct {
	// Force makes every artifact stale
	Force bool
	// Now is the clock; time.Now when nil
	Now func() time.Time
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// IsStale reports whether a needs refreshing. Dates are compared by calendar
// day: an artifact modified exactly thresholdDays ago is still fresh.
func (p Policy) IsStale(a Artifact, thresholdDays int) bool {
	if p.Force || !a.Exists {
		return true
	}
	now := p.now()
	today := truncateDay(now)
	cutoff := today.AddDate(0, 0, -thresholdDays)
	modified := truncateDay(a.Modified.In(now.Location()))
	return cutoff.After(modified)
}

// Newer reports whether a was modified after b. A missing a is never newer;
// an existing a is newer than a missing b.
func Newer(a, b Artifact) bool {
	if !a.Exists {
		return false
	}
	if !b.Exists {
		return true
	}
	return a.Modified.After(b.Modified)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
