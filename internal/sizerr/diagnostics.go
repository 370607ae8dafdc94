package sizerr

import (
	"fmt"
	"sync"
)

// Diagnostics accumulates WarningOnly and DataGap occurrences across the
// pipeline. Each named counter logs its first 10 instances (via the
// supplied logf) then silently tallies the rest, matching the "rate
// limited: first ten instances, then a summary count" contract.
type Diagnostics struct {
	mu       sync.Mutex
	logf     func(format string, args ...any)
	counters map[string]*counter
}

type counter struct {
	count   int
	logged  int
	samples []string
}

const maxLoggedSamples = 10

// NewDiagnostics returns a Diagnostics that logs through logf (typically
// backed by slog at Warn/Info level).
func NewDiagnostics(logf func(format string, args ...any)) *Diagnostics {
	return &Diagnostics{logf: logf, counters: make(map[string]*counter)}
}

// Warn records a WarningOnly occurrence under the named category.
func (d *Diagnostics) Warn(category, format string, args ...any) {
	d.record(category, format, args...)
}

// DataGap records a coverage gap (never fatal).
func (d *Diagnostics) DataGap(category, format string, args ...any) {
	d.record(category, format, args...)
}

func (d *Diagnostics) record(category, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.mu.Lock()
	c, ok := d.counters[category]
	if !ok {
		c = &counter{}
		d.counters[category] = c
	}
	c.count++
	shouldLog := c.logged < maxLoggedSamples
	if shouldLog {
		c.logged++
		c.samples = append(c.samples, msg)
	}
	d.mu.Unlock()

	if shouldLog && d.logf != nil {
		d.logf("%s: %s", category, msg)
	}
}

// Count returns how many times the given category was recorded.
func (d *Diagnostics) Count(category string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.counters[category]; ok {
		return c.count
	}
	return 0
}

// Summary returns a human-readable "category: N occurrences (M logged,
// K more suppressed)" line per category that exceeded the logged cap, for a final flush.
func (d *Diagnostics) Summary() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var lines []string
	for category, c := range d.counters {
		if c.count > maxLoggedSamples {
			lines = append(lines, fmt.Sprintf(
				"%s: %d occurrences (%d logged, %d more suppressed)",
				category, c.count, c.logged, c.count-c.logged))
		}
	}
	return lines
}
