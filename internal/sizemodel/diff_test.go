package sizemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInfo(sectionSizes map[string]uint64, symbols []*Symbol) *SizeInfo {
	return NewSizeInfo(sectionSizes, symbols)
}

func TestDiff_MatchesUnchangedSymbolByKey(t *testing.T) {
	before := newInfo(map[string]uint64{".text": 100}, []*Symbol{
		{FullName: "Foo()", SectionName: ".text", Size: 100},
	})
	after := newInfo(map[string]uint64{".text": 100}, []*Symbol{
		{FullName: "Foo()", SectionName: ".text", Size: 100},
	})

	delta := Diff(before, after)
	counts := delta.CountsByStatus()
	assert.Equal(t, 1, counts[DiffUnchanged])
	assert.Zero(t, counts[DiffChanged]+counts[DiffAdded]+counts[DiffRemoved])
}

func TestDiff_DetectsAddedAndRemoved(t *testing.T) {
	before := newInfo(nil, []*Symbol{{FullName: "Old()", SectionName: ".text", Size: 10}})
	after := newInfo(nil, []*Symbol{{FullName: "New()", SectionName: ".text", Size: 10}})

	delta := Diff(before, after)
	counts := delta.CountsByStatus()
	assert.Equal(t, 1, counts[DiffAdded])
	assert.Equal(t, 1, counts[DiffRemoved])
}

func TestDiff_IgnoresCloneSuffixWhenMatching(t *testing.T) {
	before := newInfo(nil, []*Symbol{{FullName: "Foo()", SectionName: ".text", Size: 50}})
	after := newInfo(nil, []*Symbol{{FullName: "Foo().isra.0", SectionName: ".text", Size: 60}})

	delta := Diff(before, after)
	require.Len(t, delta.Symbols, 1)
	assert.Equal(t, DiffChanged, delta.Symbols[0].Status())
	assert.Equal(t, int64(10), delta.Symbols[0].SizeDelta())
}

func TestDiff_SectionSizesDelta(t *testing.T) {
	before := newInfo(map[string]uint64{".text": 100, ".bss": 40}, nil)
	after := newInfo(map[string]uint64{".text": 120, ".bss": 40}, nil)

	delta := Diff(before, after)
	assert.Equal(t, int64(20), delta.SectionSizesDelta[".text"])
	assert.Equal(t, int64(0), delta.SectionSizesDelta[".bss"])
}

func TestDiff_DistinctObjectPathsDoNotCollide(t *testing.T) {
	before := newInfo(nil, []*Symbol{
		{FullName: "Static()", SectionName: ".text", ObjectPath: "a.o", Size: 10},
		{FullName: "Static()", SectionName: ".text", ObjectPath: "b.o", Size: 20},
	})
	after := newInfo(nil, []*Symbol{
		{FullName: "Static()", SectionName: ".text", ObjectPath: "a.o", Size: 10},
		{FullName: "Static()", SectionName: ".text", ObjectPath: "b.o", Size: 25},
	})

	delta := Diff(before, after)
	counts := delta.CountsByStatus()
	assert.Equal(t, 1, counts[DiffUnchanged])
	assert.Equal(t, 1, counts[DiffChanged])
}
