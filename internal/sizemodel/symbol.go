// Package sizemodel is the symbol/group/delta data model (C7): the
// central Symbol type, its invariants, SizeInfo, SymbolGroup queries,
// diffing, and the grouping operators callers use to explore a binary's
// footprint.
package sizemodel

import "fmt"

// SymbolFlag is a bitset over the linker/compiler artifacts a symbol can
// carry, per the data model's `flags` attribute.
type SymbolFlag uint8

const (
	FlagStartup SymbolFlag = 1 << iota
	FlagUnlikely
	FlagRel
	FlagRelLocal
	FlagClone
	FlagAnonymous
)

func (f SymbolFlag) Has(bit SymbolFlag) bool { return f&bit != 0 }

// SectionTag collapses a full section name to one of t|r|d|b for
// grouping, per the data model's "Section tag" concept.
type SectionTag byte

const (
	SectionText    SectionTag = 't'
	SectionRodata  SectionTag = 'r'
	SectionData    SectionTag = 'd'
	SectionBss     SectionTag = 'b'
	SectionUnknown SectionTag = '?'
)

// TagForSectionName collapses a section name such as ".text.startup" or
// ".data.rel.ro" to its section tag. Data-family sections (".data*")
// all collapse to 'd'.
func TagForSectionName(name string) SectionTag {
	switch {
	case name == ".bss" || hasPrefix(name, ".bss."):
		return SectionBss
	case name == ".rodata" || hasPrefix(name, ".rodata."):
		return SectionRodata
	case name == ".text" || hasPrefix(name, ".text."):
		return SectionText
	case hasPrefix(name, ".data"):
		return SectionData
	default:
		return SectionUnknown
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// AliasGroup is the shared, identity-preserving handle referenced by
// every symbol that occupies the same address under a different name.
// Consumers detect aliasing with a reference-equality check on the
// pointer, never by copying members.
type AliasGroup struct {
	Members []*Symbol
}

// Symbol is the central entity of the model: see spec §3 for the full
// attribute list and invariants 1-5.
type Symbol struct {
	SectionName string
	Section     SectionTag

	Address uint64
	Size    uint64
	Padding uint64

	FullName     string
	TemplateName string
	Name         string

	ObjectPath      string
	SourcePath      string
	GeneratedSource bool

	Flags SymbolFlag

	Aliases *AliasGroup
}

// NewSymbol constructs a Symbol with its section tag derived from name.
func NewSymbol(sectionName string, size uint64) *Symbol {
	return &Symbol{
		SectionName: sectionName,
		Section:     TagForSectionName(sectionName),
		Size:        size,
	}
}

// EndAddress is Address + SizeWithoutPadding: the first address byte
// NOT occupied by this symbol's own content (padding excluded).
func (s *Symbol) EndAddress() uint64 {
	return s.Address + s.SizeWithoutPadding()
}

// SizeWithoutPadding returns Size minus the Padding already folded into
// it (see invariant 2: Size includes padding attributed to this
// symbol).
func (s *Symbol) SizeWithoutPadding() uint64 {
	if s.Size < s.Padding {
		return 0
	}
	return s.Size - s.Padding
}

// IsBss reports whether this symbol belongs to the .bss section.
func (s *Symbol) IsBss() bool { return s.Section == SectionBss }

// NumAliases returns the number of names sharing this symbol's address,
// or 1 if it has no alias group.
func (s *Symbol) NumAliases() int {
	if s.Aliases == nil {
		return 1
	}
	return len(s.Aliases.Members)
}

// PSS is the proportional set size: Size / NumAliases.
func (s *Symbol) PSS() float64 {
	return float64(s.Size) / float64(s.NumAliases())
}

// PaddingPSS is Padding / NumAliases, used when aggregating padding
// across a diff (see diff.go).
func (s *Symbol) PaddingPSS() float64 {
	return float64(s.Padding) / float64(s.NumAliases())
}

func (s *Symbol) String() string {
	return fmt.Sprintf("Symbol(section=%s addr=0x%x size=%d pad=%d name=%q obj=%q src=%q)",
		s.SectionName, s.Address, s.Size, s.Padding, s.FullName, s.ObjectPath, s.SourcePath)
}
