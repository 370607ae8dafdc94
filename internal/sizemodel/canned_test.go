package sizemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func componentSymbols() []*Symbol {
	return []*Symbol{
		{FullName: "a::Foo()", SourcePath: "third_party/zlib/inflate.c", Size: 10},
		{FullName: "b::Bar()", SourcePath: "base/strings/string_util.cc", Size: 20},
		{FullName: "c::Baz()", SourcePath: "content/browser/thing.cc", Size: 5},
	}
}

func TestParseCannedRuleSet_DefaultsOtherBucket(t *testing.T) {
	set, err := ParseCannedRuleSet([]byte("rules: []"))
	require.NoError(t, err)
	assert.Equal(t, "Other", set.OtherBucket)
}

func TestParseCannedRuleSet_RespectsExplicitOtherBucket(t *testing.T) {
	set, err := ParseCannedRuleSet([]byte("rules: []\nother_bucket: Misc"))
	require.NoError(t, err)
	assert.Equal(t, "Misc", set.OtherBucket)
}

func TestApplyCannedRuleSet_FirstMatchingRuleWins(t *testing.T) {
	set := &CannedRuleSet{
		Rules: []CannedRule{
			{Name: "third_party", SourcePathMatches: `^third_party/`},
			{Name: "base", SourcePathMatches: `^base/`},
		},
		OtherBucket: "Other",
	}

	universe := NewSymbolGroup(componentSymbols())
	grouped, err := ApplyCannedRuleSet(universe, set)
	require.NoError(t, err)
	require.True(t, grouped.IsGroupOfGroups())

	byName := make(map[string]int)
	for _, child := range grouped.Children() {
		byName[child.Name] = child.Count()
	}
	assert.Equal(t, 1, byName["third_party"])
	assert.Equal(t, 1, byName["base"])
	assert.Equal(t, 1, byName["Other"])
}

func TestGroupByChromeComponent(t *testing.T) {
	universe := NewSymbolGroup(componentSymbols())
	grouped := GroupByChromeComponent(universe, []string{"third_party/", "base/", "content/"})
	require.Len(t, grouped.Children(), 3)
}

func TestGroupByGeneratedSource(t *testing.T) {
	universe := NewSymbolGroup([]*Symbol{
		{FullName: "Gen()", SourcePath: "out/gen/foo.cc", GeneratedSource: true, Size: 10},
		{FullName: "Hand()", SourcePath: "src/foo.cc", Size: 10},
	})
	grouped := GroupByGeneratedSource(universe)
	require.Len(t, grouped.Children(), 2)

	byName := make(map[string]int)
	for _, child := range grouped.Children() {
		byName[child.Name] = child.Count()
	}
	assert.Equal(t, 1, byName["Generated"])
	assert.Equal(t, 1, byName["Not generated"])
}
