package sizemodel

import (
	"regexp"
	"strings"
)

// DiffStatus classifies a DeltaSymbol's relationship between the before
// and after SizeInfo.
type DiffStatus int

const (
	DiffUnchanged DiffStatus = iota
	DiffChanged
	DiffAdded
	DiffRemoved
)

// DeltaSymbol pairs a before/after symbol. Before is nil for an added
// symbol, After is nil for a removed one.
type DeltaSymbol struct {
	Before *Symbol
	After  *Symbol
}

func (d *DeltaSymbol) Status() DiffStatus {
	switch {
	case d.Before == nil:
		return DiffAdded
	case d.After == nil:
		return DiffRemoved
	case d.Before.Size == d.After.Size && d.Before.Padding == d.After.Padding:
		return DiffUnchanged
	default:
		return DiffChanged
	}
}

// SizeDelta is After.Size - Before.Size, treating a missing side as 0.
func (d *DeltaSymbol) SizeDelta() int64 {
	var before, after int64
	if d.Before != nil {
		before = int64(d.Before.Size)
	}
	if d.After != nil {
		after = int64(d.After.Size)
	}
	return after - before
}

// PSSDelta mirrors SizeDelta but over PSS.
func (d *DeltaSymbol) PSSDelta() float64 {
	var before, after float64
	if d.Before != nil {
		before = d.Before.PSS()
	}
	if d.After != nil {
		after = d.After.PSS()
	}
	return after - before
}

// DeltaSizeInfo is the result of diffing two SizeInfo snapshots: a
// section-name -> delta-bytes map and the matched/added/removed symbol
// pairs.
type DeltaSizeInfo struct {
	SectionSizesDelta map[string]int64
	Symbols           []*DeltaSymbol
	BeforeMetadata    map[string]any
	AfterMetadata     map[string]any
}

var (
	cloneSuffixRe   = regexp.MustCompile(`\.(constprop|isra|part|clone|cold|lto_priv)\.\d+$`)
	symbolGapRe     = regexp.MustCompile(`^\*\* symbol gap \d+( \(.*\))?$`)
	digitsOrDotsRe  = regexp.MustCompile(`[0-9.]+`)
	aggregatePadKey = "** aggregate padding of diff'ed symbols"
)

// symbolKey computes the matching key used to pair symbols across the
// two snapshots: full name with clone suffixes stripped and numbered
// symbol-gap placeholders collapsed to a single bucket, qualified by
// object path so that same-named statics in different translation
// units never collide.
func symbolKey(s *Symbol) string {
	name := s.FullName
	if symbolGapRe.MatchString(name) {
		name = "** symbol gap"
	} else {
		name = cloneSuffixRe.ReplaceAllString(name, "")
		if strings.Contains(name, "CSWTCH") || strings.HasPrefix(name, "__compound_literal") {
			name = digitsOrDotsRe.ReplaceAllString(name, "#")
		}
	}
	return s.SectionName + "|" + name + "|" + s.ObjectPath
}

// Diff computes a DeltaSizeInfo between before and after, matching
// symbols by symbolKey and bucket-popping within each key so that
// equal-key symbols pair off in order, surfacing any count mismatch as
// added/removed DeltaSymbols. It also synthesizes an aggregate padding
// delta symbol so that padding-only churn is visible as a single line
// rather than lost in rounding across thousands of small symbols.
func Diff(before, after *SizeInfo) *DeltaSizeInfo {
	sectionDelta := make(map[string]int64)
	for name, size := range after.SectionSizes {
		sectionDelta[name] += int64(size)
	}
	for name, size := range before.SectionSizes {
		sectionDelta[name] -= int64(size)
	}

	buckets := make(map[string][]*Symbol)
	var order []string
	for _, s := range before.RawSymbols {
		key := symbolKey(s)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], s)
	}

	var deltas []*DeltaSymbol
	var paddingDelta float64

	consume := func(key string) *Symbol {
		bucket := buckets[key]
		if len(bucket) == 0 {
			return nil
		}
		buckets[key] = bucket[1:]
		return bucket[0]
	}

	seenAfterKeys := make(map[string]bool)
	for _, s := range after.RawSymbols {
		key := symbolKey(s)
		seenAfterKeys[key] = true
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		if before := consume(key); before != nil {
			d := &DeltaSymbol{Before: before, After: s}
			deltas = append(deltas, d)
			paddingDelta += s.PaddingPSS() - before.PaddingPSS()
		} else {
			deltas = append(deltas, &DeltaSymbol{After: s})
			paddingDelta += s.PaddingPSS()
		}
	}

	for _, key := range order {
		for _, remaining := range buckets[key] {
			deltas = append(deltas, &DeltaSymbol{Before: remaining})
			paddingDelta -= remaining.PaddingPSS()
		}
	}

	if paddingDelta != 0 {
		deltas = append(deltas, &DeltaSymbol{
			After: &Symbol{
				FullName: aggregatePadKey,
				Name:     aggregatePadKey,
				Size:     uint64(paddingDelta),
				Padding:  uint64(paddingDelta),
			},
		})
	}

	return &DeltaSizeInfo{
		SectionSizesDelta: sectionDelta,
		Symbols:           deltas,
		BeforeMetadata:    before.Metadata,
		AfterMetadata:     after.Metadata,
	}
}

// CountsByStatus tallies how many delta symbols fall into each status,
// the figure a diff summary line reports.
func (d *DeltaSizeInfo) CountsByStatus() map[DiffStatus]int {
	counts := make(map[DiffStatus]int)
	for _, sym := range d.Symbols {
		counts[sym.Status()]++
	}
	return counts
}
