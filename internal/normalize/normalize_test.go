package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yue/binsizer/internal/linkermap"
	"github.com/yue/binsizer/internal/sizemodel"
	"github.com/yue/binsizer/internal/sizerr"
)

func TestStripLinkerAddedPrefixes_SetsFlagPerPrefix(t *testing.T) {
	cases := []struct {
		name string
		want string
		flag sizemodel.SymbolFlag
	}{
		{"startup.Foo", "Foo", sizemodel.FlagStartup},
		{"unlikely.Bar", "Bar", sizemodel.FlagUnlikely},
		{"rel.local.Baz", "Baz", sizemodel.FlagRelLocal},
		{"rel.Qux", "Qux", sizemodel.FlagRel},
		{"Plain", "Plain", sizemodel.SymbolFlag(0)},
	}
	for _, c := range cases {
		got, flag := StripLinkerAddedPrefixes(c.name)
		assert.Equal(t, c.want, got, c.name)
		assert.Equal(t, c.flag, flag, c.name)
	}
}

func TestNormalizeNames_StripsBracketedCloneSuffixes(t *testing.T) {
	full, _, _, flags := NormalizeNames("ns::C<T>::m(int, int) [clone .isra.1] [clone .2]", false)
	assert.Equal(t, "ns::C<T>::m(int, int)", full)
	assert.True(t, flags.Has(sizemodel.FlagClone))
}

func TestNormalizeNames_StripsTrailingDigitCloneSuffixInText(t *testing.T) {
	full, _, _, flags := NormalizeNames("DoWork().constprop.3", true)
	assert.Equal(t, "DoWork()", full)
	assert.True(t, flags.Has(sizemodel.FlagClone))
}

func TestNormalizeNames_IgnoresTrailingDigitsOutsideText(t *testing.T) {
	full, _, _, flags := NormalizeNames("DoWork().constprop.3", false)
	assert.Equal(t, "DoWork().constprop.3", full)
	assert.False(t, flags.Has(sizemodel.FlagClone))
}

func TestNormalizeNames_ExcludesStartupAndTcfFromDigitCloneStrip(t *testing.T) {
	full, _, _, flags := NormalizeNames("startup.123", true)
	assert.Equal(t, "startup.123", full)
	assert.False(t, flags.Has(sizemodel.FlagClone))

	full, _, _, flags = NormalizeNames("__tcf_0.123", true)
	assert.Equal(t, "__tcf_0.123", full)
	assert.False(t, flags.Has(sizemodel.FlagClone))
}

func TestNormalizeNames_RewritesVtableToSuffixForm(t *testing.T) {
	full, _, _, _ := NormalizeNames("vtable for blink::Foo", false)
	assert.Equal(t, "blink::Foo [vtable]", full)
}

func TestNormalizeNames_RewritesThunkToSuffixForm(t *testing.T) {
	full, _, _, _ := NormalizeNames("non-virtual thunk to Foo::Bar()", false)
	assert.Equal(t, "Foo::Bar() [non-virtual thunk]", full)
}

func TestNormalizeNames_RemovesAnonymousNamespaceAndSetsFlag(t *testing.T) {
	full, template, name, flags := NormalizeNames("(anonymous namespace)::Foo::Bar()", false)
	assert.Equal(t, "Foo::Bar()", full)
	assert.Equal(t, "Foo::Bar", template)
	assert.Equal(t, "Foo::Bar", name)
	assert.True(t, flags.Has(sizemodel.FlagAnonymous))
}

func TestComputeAncestorPath_SingleCandidateUnchanged(t *testing.T) {
	assert.Equal(t, "src/foo.cc", ComputeAncestorPath([]string{"src/foo.cc"}))
}

func TestComputeAncestorPath_MultipleCollapseToPlaceholder(t *testing.T) {
	assert.Equal(t, "{shared}/3", ComputeAncestorPath([]string{"a.cc", "b.cc", "c.cc"}))
}

func TestCalculatePadding_AttributesGapToLaterSymbol(t *testing.T) {
	a := sizemodel.NewSymbol(".text", 4)
	a.Address = 0x1000
	a.FullName = "a"
	b := sizemodel.NewSymbol(".text", 4)
	b.Address = 0x1010
	b.FullName = "b"

	CalculatePadding([]*sizemodel.Symbol{a, b}, nil)

	assert.Equal(t, uint64(0), a.Padding)
	assert.Equal(t, uint64(4), a.Size)
	assert.Equal(t, uint64(0xc), b.Padding)
	assert.Equal(t, uint64(0x10), b.Size)
}

func TestCalculatePadding_SkipsPairsAcrossSections(t *testing.T) {
	a := sizemodel.NewSymbol(".text", 4)
	a.Address = 0x1000
	a.FullName = "a"
	b := sizemodel.NewSymbol(".rodata", 4)
	b.Address = 0x2000
	b.FullName = "b"

	CalculatePadding([]*sizemodel.Symbol{a, b}, nil)

	assert.Equal(t, uint64(0), b.Padding)
	assert.Equal(t, uint64(4), b.Size)
}

func TestCalculatePadding_InheritsFromSharedAliasAtEqualAddress(t *testing.T) {
	ag := &sizemodel.AliasGroup{}
	a := sizemodel.NewSymbol(".text", 4)
	a.Address = 0x1000
	a.FullName = "a"
	a.Padding = 2
	a.Aliases = ag
	b := sizemodel.NewSymbol(".text", 4)
	b.Address = 0x1000
	b.FullName = "a_alias"
	b.Aliases = ag
	ag.Members = []*sizemodel.Symbol{a, b}

	CalculatePadding([]*sizemodel.Symbol{a, b}, nil)

	assert.Equal(t, a.Padding, b.Padding)
	assert.Equal(t, a.Size, b.Size)
}

func TestAddSymbolAliases_InjectsNewSymbolPerAlternateName(t *testing.T) {
	foo := sizemodel.NewSymbol(".text", 0x20)
	foo.Address = 0x2000
	foo.FullName = "foo"
	aliasesByAddress := map[uint64][]string{0x2000: {"foo", "foo_alias"}}

	out := AddSymbolAliases([]*sizemodel.Symbol{foo}, aliasesByAddress, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "foo", out[0].FullName)
	assert.Equal(t, "foo_alias", out[1].FullName)
	assert.Equal(t, uint64(0x2000), out[0].Address)
	assert.Equal(t, uint64(0x2000), out[1].Address)
	assert.Equal(t, uint64(0x20), out[0].Size)
	require.NotNil(t, out[0].Aliases)
	assert.Same(t, out[0].Aliases, out[1].Aliases)
	assert.Equal(t, 2, out[0].NumAliases())
	assert.Equal(t, 16.0, out[0].PSS())
}

func TestAddSymbolAliases_SkipsPaddingOnlySymbols(t *testing.T) {
	gap := sizemodel.NewSymbol(".text", 0)
	gap.Address = 0x3000
	gap.FullName = "** symbol gap 0"
	aliasesByAddress := map[uint64][]string{0x3000: {"foo", "bar"}}

	out := AddSymbolAliases([]*sizemodel.Symbol{gap}, aliasesByAddress, nil)

	require.Len(t, out, 1)
	assert.Same(t, gap, out[0])
	assert.Nil(t, out[0].Aliases)
}

func TestAddSymbolAliases_WarnsWhenNameMissingFromList(t *testing.T) {
	a := sizemodel.NewSymbol(".text", 8)
	a.Address = 0x2000
	a.FullName = "A"
	diag := sizerr.NewDiagnostics(func(string, ...any) {})

	out := AddSymbolAliases([]*sizemodel.Symbol{a}, map[uint64][]string{0x2000: {"SomethingElse"}}, diag)

	require.Len(t, out, 1)
	assert.Same(t, a, out[0])
	assert.Equal(t, 1, diag.Count("alias_name_mismatch"))
}

func TestAddSymbolAliases_WarnsOnTooFewAliases(t *testing.T) {
	a := sizemodel.NewSymbol(".text", 8)
	a.Address = 0x2000
	a.FullName = "A"
	b := sizemodel.NewSymbol(".text", 8)
	b.Address = 0x2100
	b.FullName = "B"
	diag := sizerr.NewDiagnostics(func(string, ...any) {})

	AddSymbolAliases([]*sizemodel.Symbol{a, b}, map[uint64][]string{0x2000: {"A"}}, diag)

	assert.Equal(t, 1, diag.Count("too_few_aliases"))
}

func TestBuildSymbols_NoDemanglerPassesNamesThrough(t *testing.T) {
	raw := []linkermap.Symbol{
		{SectionName: ".text", Address: 0x1000, Size: 16, Name: "DoFoo(int)", ObjectPath: "obj/foo.o"},
	}
	symbols, err := BuildSymbols(raw, nil, nil, nil, "", nil)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "DoFoo(int)", symbols[0].FullName)
	assert.Equal(t, "DoFoo", symbols[0].Name)
}

func TestBuildSymbols_SetsStartupFlagAndStripsPrefix(t *testing.T) {
	raw := []linkermap.Symbol{
		{SectionName: ".text", Address: 0x1000, Size: 8, Name: "startup.Init()", ObjectPath: "obj/init.o"},
	}
	symbols, err := BuildSymbols(raw, nil, nil, nil, "", nil)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "Init()", symbols[0].FullName)
	assert.True(t, symbols[0].Flags.Has(sizemodel.FlagStartup))
}

func TestBuildSymbols_InjectsAliasesFromNmMap(t *testing.T) {
	raw := []linkermap.Symbol{
		{SectionName: ".text", Address: 0x2000, Size: 0x20, Name: "foo", ObjectPath: "obj/foo.o"},
	}
	aliasesByAddress := map[uint64][]string{0x2000: {"foo", "foo_alias"}}

	symbols, err := BuildSymbols(raw, nil, aliasesByAddress, nil, "", nil)
	require.NoError(t, err)

	require.Len(t, symbols, 2)
	assert.Equal(t, 2, symbols[0].NumAliases())
	assert.Equal(t, 16.0, symbols[0].PSS())
}
