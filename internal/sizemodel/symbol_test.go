package sizemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagForSectionName(t *testing.T) {
	cases := map[string]SectionTag{
		".text":          SectionText,
		".text.startup":  SectionText,
		".rodata":        SectionRodata,
		".rodata.str1.1": SectionRodata,
		".data.rel.ro":   SectionData,
		".bss":           SectionBss,
		".weird":         SectionUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, TagForSectionName(name), name)
	}
}

func TestSymbol_EndAddressExcludesPadding(t *testing.T) {
	s := &Symbol{Address: 0x1000, Size: 32, Padding: 8}
	assert.Equal(t, uint64(0x1000+24), s.EndAddress())
}

func TestSymbol_PSSDividesByAliasCount(t *testing.T) {
	shared := &AliasGroup{}
	a := &Symbol{Size: 100, Aliases: shared}
	b := &Symbol{Size: 100, Aliases: shared}
	shared.Members = []*Symbol{a, b}

	assert.Equal(t, 2, a.NumAliases())
	assert.InDelta(t, 50.0, a.PSS(), 0.001)
}

func TestSymbol_PSSWithoutAliasesIsFullSize(t *testing.T) {
	s := &Symbol{Size: 64}
	assert.Equal(t, 1, s.NumAliases())
	assert.InDelta(t, 64.0, s.PSS(), 0.001)
}

func TestSymbol_IsBss(t *testing.T) {
	s := NewSymbol(".bss", 16)
	assert.True(t, s.IsBss())
	assert.False(t, NewSymbol(".text", 16).IsBss())
}
