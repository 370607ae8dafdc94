package sizemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeInfo_SectionNamesSorted(t *testing.T) {
	info := NewSizeInfo(map[string]uint64{".text": 10, ".bss": 5, ".data": 1}, nil)
	assert.Equal(t, []string{".bss", ".data", ".text"}, info.SectionNames())
}

func TestSizeInfo_SymbolsReturnsLeafGroup(t *testing.T) {
	symbols := []*Symbol{{FullName: "Foo()", Size: 10}}
	info := NewSizeInfo(nil, symbols)
	group := info.Symbols()
	assert.False(t, group.IsGroupOfGroups())
	assert.Equal(t, 1, group.Count())
}
