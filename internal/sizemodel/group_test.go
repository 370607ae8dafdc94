package sizemodel

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeSymbols() []*Symbol {
	shared := &AliasGroup{}
	a := &Symbol{FullName: "ns::Foo()", Name: "Foo()", TemplateName: "Foo()", SectionName: ".text", Section: SectionText, Size: 100, Aliases: shared}
	b := &Symbol{FullName: "ns::FooAlias()", Name: "FooAlias()", TemplateName: "FooAlias()", SectionName: ".text", Section: SectionText, Size: 100, Aliases: shared}
	shared.Members = []*Symbol{a, b}
	c := &Symbol{FullName: "other::Bar<T>()", Name: "Bar<T>()", TemplateName: "Bar()", SectionName: ".rodata", Section: SectionRodata, Size: 20, SourcePath: "gen/bar.cc", GeneratedSource: true}
	return []*Symbol{a, b, c}
}

func TestSymbolGroup_CountVsCountUniqueSymbols(t *testing.T) {
	g := NewSymbolGroup(threeSymbols())
	assert.Equal(t, 3, g.Count())
	assert.Equal(t, 2, g.CountUniqueSymbols())
}

func TestSymbolGroup_PSSHalvesAliasedSymbols(t *testing.T) {
	g := NewSymbolGroup(threeSymbols())
	// a and b share one alias group of size 100 each -> PSS 50 apiece; c is 20.
	assert.InDelta(t, 120.0, g.PSS(), 0.001)
}

func TestSymbolGroup_WhereIsTemplate(t *testing.T) {
	g := NewSymbolGroup(threeSymbols())
	templates := g.WhereIsTemplate()
	require.Equal(t, 1, templates.Count())
	assert.Equal(t, "other::Bar<T>()", templates.Symbols()[0].FullName)
}

func TestSymbolGroup_WhereSourceIsGenerated(t *testing.T) {
	g := NewSymbolGroup(threeSymbols())
	assert.Equal(t, 1, g.WhereSourceIsGenerated().Count())
}

func TestSymbolGroup_WhereFullNameMatches(t *testing.T) {
	g := NewSymbolGroup(threeSymbols())
	matched := g.WhereFullNameMatches(regexp.MustCompile(`^ns::`))
	assert.Equal(t, 2, matched.Count())
}

func TestSymbolGroup_GroupedBySection(t *testing.T) {
	g := NewSymbolGroup(threeSymbols())
	grouped := g.GroupedBySection()
	require.True(t, grouped.IsGroupOfGroups())
	require.Len(t, grouped.Children(), 2)

	names := make(map[string]int)
	for _, child := range grouped.Children() {
		names[child.Name] = child.Count()
	}
	assert.Equal(t, 2, names[".text"])
	assert.Equal(t, 1, names[".rodata"])
}

func TestSymbolGroup_GroupedByNameTruncatesDepth(t *testing.T) {
	symbols := []*Symbol{
		{FullName: "a::b::c::Foo()", Name: "a::b::c::Foo()", Size: 10},
		{FullName: "a::b::d::Bar()", Name: "a::b::d::Bar()", Size: 10},
	}
	g := NewSymbolGroup(symbols).GroupedByName(2)
	require.Len(t, g.Children(), 1)
	assert.Equal(t, "a::b", g.Children()[0].Name)
}

func TestSymbolGroup_Sorted_OrdersByAbsPSSDescending(t *testing.T) {
	g := NewSymbolGroup(threeSymbols()).Sorted()
	symbols := g.Symbols()
	require.Len(t, symbols, 3)
	assert.GreaterOrEqual(t, symbols[0].PSS(), symbols[1].PSS())
	assert.GreaterOrEqual(t, symbols[1].PSS(), symbols[2].PSS())
}

func TestSymbolGroup_UnionDifferenceSubsetEqual(t *testing.T) {
	all := threeSymbols()
	left := NewSymbolGroup(all[:2])
	right := NewSymbolGroup(all[1:])

	union := left.Union(right)
	assert.Equal(t, 3, union.Count())

	diff := left.Difference(right)
	assert.Equal(t, 1, diff.Count())

	assert.True(t, diff.IsSubsetOf(left))
	assert.False(t, left.IsSubsetOf(diff))
	assert.True(t, union.Equal(NewSymbolGroup(all)))
}

func TestSymbolGroup_InvertedIn(t *testing.T) {
	all := NewSymbolGroup(threeSymbols())
	subset := all.WhereSection(SectionText)
	inverted := subset.InvertedIn(all)
	assert.Equal(t, all.Count()-subset.Count(), inverted.Count())
}

func TestSymbolGroup_Names(t *testing.T) {
	g := NewSymbolGroup(threeSymbols())
	names := g.Names()
	assert.ElementsMatch(t, []string{"ns::Foo()", "ns::FooAlias()", "other::Bar<T>()"}, names)
}

func TestSymbolGroup_FilterAlwaysReturnsLeaf(t *testing.T) {
	g := NewSymbolGroup(threeSymbols()).GroupedBySection()
	require.True(t, g.IsGroupOfGroups())

	filtered := g.Filter(func(s *Symbol) bool { return s.Size > 50 })
	assert.False(t, filtered.IsGroupOfGroups())
	assert.Equal(t, 2, filtered.Count())
}
