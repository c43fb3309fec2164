// Package diag collects the non-fatal problems found while refreshing data or
// ranking a pool, so they can be shown next to the report instead of aborting it.
package diag

import (
	"fmt"
	"sync"

	"bestpick/internal/relation"

	"github.com/rs/zerolog"
)

// Kind classifies a diagnostic
type Kind string

const (
	MissingRelation      Kind = "missing_relation"
	InsufficientSample   Kind = "insufficient_sample"
	MissingTable         Kind = "missing_table"
	AcquisitionFailure   Kind = "acquisition_failure"
	StructuralParseError Kind = "structural_parse_error"
)

// Diagnostic is one recovered problem
type Diagnostic struct {
	Kind  Kind
	Table relation.TableID
	// Counterpart is set for relation-level diagnostics
	Counterpart relation.Key
	SampleSize  int
	Err         error
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case MissingRelation:
		return fmt.Sprintf("%s not found: %s %s %s (%s)",
			d.Table.Kind, d.Table.Character, relationWord(d.Table.Kind), d.Counterpart.Character, d.Counterpart.Role)
	case InsufficientSample:
		return fmt.Sprintf("insufficient %s games (%d): %s %s %s (%s)",
			d.Table.Kind, d.SampleSize, d.Table.Character, relationWord(d.Table.Kind), d.Counterpart.Character, d.Counterpart.Role)
	case MissingTable:
		return fmt.Sprintf("no %s data stored for %s %s", d.Table.Kind, d.Table.Character, d.Table.Role)
	default:
		return fmt.Sprintf("%s for %s: %v", d.Kind, d.Table, d.Err)
	}
}

func relationWord(k relation.Kind) string {
	if k == relation.Synergy {
		return "with"
	}
	return "vs"
}

// Sink receives diagnostics
type Sink interface {
	Report(d Diagnostic)
}

// Collector is a Sink that keeps every diagnostic and logs it
type Collector struct {
	logger zerolog.Logger

	mu    sync.Mutex
	diags []Diagnostic
}

// NewCollector creates a collector that logs through logger
func NewCollector(logger zerolog.Logger) *Collector {
	return &Collector{logger: logger.With().Str("component", "diag").Logger()}
}

// Report records d
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()

	ev := c.logger.Debug()
	if d.Kind == AcquisitionFailure || d.Kind == StructuralParseError {
		ev = c.logger.Warn()
	}
	ev.Str("kind", string(d.Kind)).Str("table", d.Table.String()).Msg(d.String())
}

// All returns a copy of every diagnostic reported so far
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Count returns how many diagnostics of kind k were reported
func (c *Collector) Count(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diags {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Reset drops every collected diagnostic
func (c *Collector) Reset() {
	c.mu.Lock()
	c.diags = nil
	c.mu.Unlock()
}
