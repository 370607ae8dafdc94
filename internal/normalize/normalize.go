// Package normalize runs the post-processing pipeline that turns raw
// linker-map symbols into the model's Symbol records: stripping
// linker-added name prefixes, demangling what's left, injecting aliases
// reported by nm, normalizing names (clone/vtable/typeinfo/thunk/
// anonymous-namespace handling), normalizing object paths, and computing
// padding.
package normalize

import (
	"fmt"
	"strings"

	"github.com/yue/binsizer/internal/funcsig"
	"github.com/yue/binsizer/internal/linkermap"
	"github.com/yue/binsizer/internal/ninja"
	"github.com/yue/binsizer/internal/sizemodel"
	"github.com/yue/binsizer/internal/sizerr"
)

// Demangler demangles a mangled C++ name, normally backed by a
// c++filt subprocess.
type Demangler interface {
	Demangle(names []string) ([]string, error)
}

var (
	// tooFewAliasesThreshold is the fraction of newly-injected alias
	// symbols to total symbol count below which the whole run looks
	// suspicious (gcc-style binaries sit around 25%; clang rarely
	// reports nm aliases at all, hence the warning rather than an abort).
	tooFewAliasesThreshold = 0.05

	paddingWarnThresholdLarge uint64 = 256
	paddingWarnThresholdSmall uint64 = 64
)

// StripLinkerAddedPrefixes removes the handful of synthetic prefixes the
// linker attaches ahead of a symbol's real name, returning the stripped
// name and the flag that records which prefix (if any) applied.
func StripLinkerAddedPrefixes(name string) (string, sizemodel.SymbolFlag) {
	switch {
	case strings.HasPrefix(name, "startup."):
		return strings.TrimPrefix(name, "startup."), sizemodel.FlagStartup
	case strings.HasPrefix(name, "unlikely."):
		return strings.TrimPrefix(name, "unlikely."), sizemodel.FlagUnlikely
	case strings.HasPrefix(name, "rel.local."):
		return strings.TrimPrefix(name, "rel.local."), sizemodel.FlagRelLocal
	case strings.HasPrefix(name, "rel."):
		return strings.TrimPrefix(name, "rel."), sizemodel.FlagRel
	default:
		return name, 0
	}
}

// NormalizeNames rewrites a single demangled name into its canonical
// (full, template, name) triple: [clone ...] suffixes stripped, the
// C-symbol trailing ".<digits>" clone form stripped for .text, vtable/
// typeinfo/thunk prefixes rewritten to a trailing "[...]" tag, the
// result split into full/template/name, and anonymous-namespace markers
// removed from all three.
func NormalizeNames(demangled string, isTextSection bool) (full, template, name string, flags sizemodel.SymbolFlag) {
	n := demangled

	// [clone ...] can repeat (gcc emits "[clone .isra.1] [clone .2]");
	// truncating at the first occurrence drops every one in one step.
	if idx := strings.Index(n, " [clone "); idx != -1 {
		n = n[:idx]
		flags |= sizemodel.FlagClone
	}

	if isTextSection {
		if idx := strings.LastIndexByte(n, '.'); idx != -1 && isAllDigits(n[idx+1:]) {
			newName := n[:idx]
			// Generated symbols that end in ".123" but are not clones.
			if newName != "__tcf_0" && newName != "startup" {
				n = newName
				flags |= sizemodel.FlagClone
				if idx2 := strings.LastIndexByte(n, '.'); idx2 != -1 {
					n = n[:idx2]
				}
			}
		}
	}

	n = rewriteForOrToSuffix(n, " for ")
	n = rewriteForOrToSuffix(n, " to ")

	full, template, name = funcsig.Split(n)

	full = stripAnonymousNamespace(full)
	template = stripAnonymousNamespace(template)
	nonAnonymousName := stripAnonymousNamespace(name)
	if nonAnonymousName != name {
		flags |= sizemodel.FlagAnonymous
	}
	name = nonAnonymousName
	return full, template, name, flags
}

// rewriteForOrToSuffix rewrites "PREFIX<sep>Y" as "Y [PREFIX]" when sep
// ("vtable for ", "virtual thunk to ", etc.) occurs within name's first
// 30 characters, covering any "<prefix> for|to <Y>" pair the linker or
// compiler emits, not just the vtable/typeinfo/thunk names seen so far.
func rewriteForOrToSuffix(name, sep string) string {
	limit := len(name)
	if limit > 30 {
		limit = 30
	}
	idx := strings.Index(name[:limit], sep)
	if idx == -1 {
		return name
	}
	prefix := name[:idx]
	suffix := name[idx+len(sep):]
	return suffix + " [" + prefix + "]"
}

func stripAnonymousNamespace(s string) string {
	return strings.ReplaceAll(s, "(anonymous namespace)::", "")
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeObjectPath strips a leading outputDirectory+"/" prefix from
// objectPath and changes nothing else: a leading "obj/" or "../../" is
// kept, and archive members stay in "archive.a(member.o)" form.
func NormalizeObjectPath(objectPath, outputDirectory string) string {
	p := strings.TrimPrefix(objectPath, outputDirectory+"/")
	return p
}

// ancestorPlaceholderFmt is substituted for a source path the pipeline
// could only narrow down to a common ancestor directory shared by
// several plausible candidates, never to one definite file.
const ancestorPlaceholderFmt = "{shared}/%d"

// ComputeAncestorPath collapses several plausible source-path
// candidates that share no single definite match into a
// "{shared}/N" placeholder, where N is how many candidates collapsed.
// A single candidate degrades to returning it unchanged.
func ComputeAncestorPath(candidates []string) string {
	switch len(candidates) {
	case 0:
		return ""
	case 1:
		return candidates[0]
	default:
		return fmt.Sprintf(ancestorPlaceholderFmt, len(candidates))
	}
}

// CalculatePadding walks symbols (already sorted by section then
// address) and attributes the gap between one symbol's address and the
// previous symbol's end address to itself as alignment padding. Pairs
// that cross a section boundary are skipped; a pair sharing an address
// and an alias group inherits the earlier symbol's padding and size
// instead of computing a fresh gap. A gap at or above paddingWarnThresholdLarge
// (rodata/data) or paddingWarnThresholdSmall (text) is suspicious enough
// to flag via diag rather than silently folding in.
func CalculatePadding(symbols []*sizemodel.Symbol, diag *sizerr.Diagnostics) {
	for i := 1; i < len(symbols); i++ {
		sym := symbols[i]
		prev := symbols[i-1]
		if prev.SectionName != sym.SectionName {
			continue
		}
		if sym.Address == 0 || prev.Address == 0 {
			continue
		}
		if sym.Address == prev.Address {
			if sym.Aliases != nil && sym.Aliases == prev.Aliases {
				sym.Padding = prev.Padding
				sym.Size = prev.Size
				continue
			}
			// Otherwise this is a padding-only "** symbol gap" sharing an
			// address with the symbol it measures up to; falls through to
			// compute a zero-byte gap against prev below.
		}
		if sym.Address < prev.EndAddress() {
			continue
		}

		padding := sym.Address - prev.EndAddress()
		suspicious := !strings.HasPrefix(sym.FullName, "*") &&
			((sym.Section == sizemodel.SectionRodata || sym.Section == sizemodel.SectionData) && padding >= paddingWarnThresholdLarge ||
				sym.Section == sizemodel.SectionText && padding >= paddingWarnThresholdSmall)
		if suspicious && diag != nil {
			diag.Warn("suspicious_padding", "symbol %q has a %d byte gap before it (previous symbol %q)", sym.FullName, padding, prev.FullName)
		}
		sym.Padding = padding
		sym.Size += padding
	}
}

// AddSymbolAliases injects, for each address present in
// aliasesByAddress, one new symbol per alternate name nm reported at
// that address, all sharing a freshly-allocated AliasGroup and the
// original symbol's section/size/address. The new symbols replace the
// original in the returned slice, preserving address order. Padding-only
// symbols (size 0, e.g. "** symbol gap" placeholders) are never
// aliased. If the resulting ratio of injected symbols to the original
// count is far below the ~25% expected for gcc-style output, diag gets
// a single warning.
func AddSymbolAliases(symbols []*sizemodel.Symbol, aliasesByAddress map[uint64][]string, diag *sizerr.Diagnostics) []*sizemodel.Symbol {
	if len(aliasesByAddress) == 0 {
		return symbols
	}

	out := make([]*sizemodel.Symbol, 0, len(symbols))
	numNewSymbols := 0
	for _, s := range symbols {
		nameList := aliasesByAddress[s.Address]
		if s.SizeWithoutPadding() == 0 || len(nameList) == 0 {
			out = append(out, s)
			continue
		}
		if !containsName(nameList, s.FullName) {
			if diag != nil {
				diag.Warn("alias_name_mismatch", "name missing from nm aliases: %q not in %v", s.FullName, nameList)
			}
			out = append(out, s)
			continue
		}

		ag := &sizemodel.AliasGroup{}
		members := make([]*sizemodel.Symbol, len(nameList))
		for i, fullName := range nameList {
			alias := sizemodel.NewSymbol(s.SectionName, s.Size)
			alias.Address = s.Address
			alias.FullName = fullName
			alias.Aliases = ag
			members[i] = alias
		}
		ag.Members = members
		numNewSymbols += len(nameList) - 1
		out = append(out, members...)
	}

	if len(symbols) > 0 && diag != nil {
		ratio := float64(numNewSymbols) / float64(len(symbols))
		if ratio < tooFewAliasesThreshold {
			diag.Warn("too_few_aliases", "number of aliases is oddly low (%.0f%%); expected around 25%% for gcc-style output, ignore if built with clang", ratio*100)
		}
	}
	return out
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// AttributeSource fills in SourcePath and ObjectPath-derived
// GeneratedSource using the ninja build graph, recording a DataGap for
// any object path ninja's graph has no record of.
func AttributeSource(symbols []*sizemodel.Symbol, mapper *ninja.SourceMapper, diag *sizerr.Diagnostics) {
	for _, s := range symbols {
		if s.ObjectPath == "" {
			continue
		}
		src, ok := mapper.FindSource(s.ObjectPath, diag)
		if !ok {
			continue
		}
		s.SourcePath = src
		s.GeneratedSource = isGeneratedSourcePath(src)
	}
}

func isGeneratedSourcePath(path string) bool {
	return strings.Contains(path, "/gen/") || strings.HasPrefix(path, "gen/")
}

// BuildSymbols is the top-level entry point: it turns raw linker-map
// symbols plus nm's per-address alias names into fully normalized model
// Symbols. Stages run in the order the data depends on: (1) strip
// linker-added prefixes, (2) demangle, (4) inject aliases (matched
// against the still-unnormalized demangled name, exactly as nm reports
// it), (3) normalize names - deferred this late so injected aliases are
// normalized too, (5) attribute source, (6) compute padding. It is
// re-entrant so that sizefile.Load can re-run it against a
// previously-serialized raw symbol list.
func BuildSymbols(raw []linkermap.Symbol, demangler Demangler, aliasesByAddress map[uint64][]string, mapper *ninja.SourceMapper, outputDirectory string, diag *sizerr.Diagnostics) ([]*sizemodel.Symbol, error) {
	stripped := make([]string, len(raw))
	prefixFlags := make([]sizemodel.SymbolFlag, len(raw))
	for i, r := range raw {
		stripped[i], prefixFlags[i] = StripLinkerAddedPrefixes(r.Name)
	}

	demangled := stripped
	if demangler != nil {
		var err error
		demangled, err = demangler.Demangle(stripped)
		if err != nil {
			return nil, err
		}
	}

	out := make([]*sizemodel.Symbol, len(raw))
	for i, r := range raw {
		s := sizemodel.NewSymbol(r.SectionName, r.Size)
		s.Address = r.Address
		s.FullName = demangled[i]
		s.ObjectPath = NormalizeObjectPath(r.ObjectPath, outputDirectory)
		s.Flags |= prefixFlags[i]
		out[i] = s
	}

	out = AddSymbolAliases(out, aliasesByAddress, diag)

	for _, s := range out {
		full, template, name, flags := NormalizeNames(s.FullName, s.Section == sizemodel.SectionText)
		s.FullName = full
		s.TemplateName = template
		s.Name = name
		s.Flags |= flags
	}

	if mapper != nil {
		AttributeSource(out, mapper, diag)
	}
	CalculatePadding(out, diag)

	return out, nil
}
