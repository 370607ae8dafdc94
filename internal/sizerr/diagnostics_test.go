package sizerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostics_CountsEveryOccurrence(t *testing.T) {
	d := NewDiagnostics(nil)
	for i := 0; i < 15; i++ {
		d.DataGap("unmatched_object", "object %d not found", i)
	}
	assert.Equal(t, 15, d.Count("unmatched_object"))
}

func TestDiagnostics_LogsOnlyFirstTenSamples(t *testing.T) {
	var logged []string
	d := NewDiagnostics(func(format string, args ...any) {
		logged = append(logged, format)
	})
	for i := 0; i < 15; i++ {
		d.Warn("too_few_aliases", "group %d below threshold", i)
	}
	assert.Len(t, logged, 10)
}

func TestDiagnostics_SummaryReportsSuppressedCount(t *testing.T) {
	d := NewDiagnostics(nil)
	for i := 0; i < 13; i++ {
		d.Warn("padding_gap", "gap at %d", i)
	}
	summary := d.Summary()
	require.Len(t, summary, 1)
	assert.Contains(t, summary[0], "13 occurrences")
	assert.Contains(t, summary[0], "10 logged")
	assert.Contains(t, summary[0], "3 more suppressed")
}

func TestDiagnostics_SummaryOmitsCategoriesUnderCap(t *testing.T) {
	d := NewDiagnostics(nil)
	d.Warn("rare", "only happened once")
	assert.Empty(t, d.Summary())
}
