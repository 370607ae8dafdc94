package sizemodel

import (
	"sort"

	"golang.org/x/exp/maps"
)

// Metadata keys, matching the free-form metadata blob the data model
// attaches to a SizeInfo (git revision, architecture, ELF mtime, build
// id, tool prefix, gn args, file names).
const (
	MetadataGitRevision     = "git_revision"
	MetadataElfArchitecture = "elf_architecture"
	MetadataElfMtime        = "elf_mtime"
	MetadataElfBuildID      = "elf_build_id"
	MetadataToolPrefix      = "tool_prefix"
	MetadataGnArgs          = "gn_args"
	MetadataMapFilename     = "map_filename"
	MetadataElfFilename     = "elf_filename"
	MetadataApkFilename     = "apk_filename"
)

// SizeInfo is the container owning the full raw symbol list, the
// section-name -> size totals, and free-form metadata.
type SizeInfo struct {
	SectionSizes map[string]uint64
	RawSymbols   []*Symbol
	Metadata     map[string]any
}

// NewSizeInfo wraps a section-size map and raw symbol list into a
// SizeInfo with empty metadata.
func NewSizeInfo(sectionSizes map[string]uint64, rawSymbols []*Symbol) *SizeInfo {
	return &SizeInfo{
		SectionSizes: sectionSizes,
		RawSymbols:   rawSymbols,
		Metadata:     make(map[string]any),
	}
}

// Symbols returns a SymbolGroup view over every raw symbol, the entry
// point for all further querying (see group.go).
func (si *SizeInfo) Symbols() *SymbolGroup {
	return NewSymbolGroup(si.RawSymbols)
}

// SectionNames returns the section names present in SectionSizes,
// sorted, for callers (CLI summaries, the HTML report) that need a
// deterministic iteration order over what is otherwise a plain map.
func (si *SizeInfo) SectionNames() []string {
	names := maps.Keys(si.SectionSizes)
	sort.Strings(names)
	return names
}
