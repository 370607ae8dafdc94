package sizemodel

import (
	"regexp"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/yue/binsizer/pkg/utils"
)

// SymbolGroup is a lazy, composable view over a symbol list. It is
// either a leaf group (a flat list of Symbols) or a group-of-groups
// (produced by GroupedByName/GroupedByFullName/GroupedBySection/canned
// queries), mirroring the reference model where a SymbolGroup can
// itself contain SymbolGroups. Every operation below returns a NEW
// group; none mutate the receiver.
type SymbolGroup struct {
	Name     string
	symbols  []*Symbol
	children []*SymbolGroup
}

// NewSymbolGroup wraps a flat symbol slice into a leaf group.
func NewSymbolGroup(symbols []*Symbol) *SymbolGroup {
	return &SymbolGroup{symbols: symbols}
}

func newGroupOfGroups(name string, children []*SymbolGroup) *SymbolGroup {
	return &SymbolGroup{Name: name, children: children}
}

// SetName returns a copy of g with Name set, used by canned queries to
// label a bucket after computing it.
func (g *SymbolGroup) SetName(name string) *SymbolGroup {
	clone := *g
	clone.Name = name
	return &clone
}

// Symbols flattens the group (recursively, if it is a group-of-groups)
// into its leaf symbols, in order.
func (g *SymbolGroup) Symbols() []*Symbol {
	if g.children == nil {
		return g.symbols
	}
	var out []*Symbol
	for _, c := range g.children {
		out = append(out, c.Symbols()...)
	}
	return out
}

// Children returns the subgroups of a group-of-groups, or nil for a leaf
// group.
func (g *SymbolGroup) Children() []*SymbolGroup { return g.children }

// IsGroupOfGroups reports whether this group was produced by a
// GroupedBy* operation (its members are SymbolGroups, not Symbols).
func (g *SymbolGroup) IsGroupOfGroups() bool { return g.children != nil }

// Count returns the number of leaf symbols in the group.
func (g *SymbolGroup) Count() int { return len(g.Symbols()) }

// CountUniqueSymbols counts each alias group once rather than once per
// member name.
func (g *SymbolGroup) CountUniqueSymbols() int {
	seen := make(map[*AliasGroup]bool)
	count := 0
	for _, s := range g.Symbols() {
		if s.Aliases == nil {
			count++
			continue
		}
		if !seen[s.Aliases] {
			seen[s.Aliases] = true
			count++
		}
	}
	return count
}

// PSS is the sum of PSS over the group's leaf symbols.
func (g *SymbolGroup) PSS() float64 {
	return utils.Accumulate(g.Symbols(), func(s *Symbol) float64 { return s.PSS() })
}

// filterLeaf applies predicate over Symbols() regardless of whether g is
// a leaf or a group-of-groups; the result is always a leaf group (the
// grouping structure does not survive a filter, matching the reference
// semantics where Filter always narrows the underlying symbol list).
func (g *SymbolGroup) filterLeaf(predicate func(*Symbol) bool) *SymbolGroup {
	var out []*Symbol
	for _, s := range g.Symbols() {
		if predicate(s) {
			out = append(out, s)
		}
	}
	return NewSymbolGroup(out)
}

// Filter returns the subset of symbols for which predicate is true.
func (g *SymbolGroup) Filter(predicate func(*Symbol) bool) *SymbolGroup {
	return g.filterLeaf(predicate)
}

// InvertedIn returns the symbols of universe that are not in g. A
// SymbolGroup does not retain a reference to the universe it was
// filtered from, so the caller passes that universe explicitly.
func (g *SymbolGroup) InvertedIn(universe *SymbolGroup) *SymbolGroup {
	excluded := make(map[*Symbol]bool, g.Count())
	for _, s := range g.Symbols() {
		excluded[s] = true
	}
	return universe.filterLeaf(func(s *Symbol) bool { return !excluded[s] })
}

func (g *SymbolGroup) WhereNameMatches(re *regexp.Regexp) *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return re.MatchString(s.Name) })
}

func (g *SymbolGroup) WhereFullNameMatches(re *regexp.Regexp) *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return re.MatchString(s.FullName) })
}

func (g *SymbolGroup) WhereSourcePathMatches(re *regexp.Regexp) *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return re.MatchString(s.SourcePath) })
}

func (g *SymbolGroup) WhereObjectPathMatches(re *regexp.Regexp) *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return re.MatchString(s.ObjectPath) })
}

func (g *SymbolGroup) WhereSection(tag SectionTag) *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return s.Section == tag })
}

// WhereInSection is an alias for WhereSection, matching the reference
// API's naming (the two are interchangeable there).
func (g *SymbolGroup) WhereInSection(tag SectionTag) *SymbolGroup {
	return g.WhereSection(tag)
}

func (g *SymbolGroup) WherePSSAbove(n float64) *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return s.PSS() > n })
}

func (g *SymbolGroup) WhereIsTemplate() *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return s.TemplateName != s.Name })
}

func (g *SymbolGroup) WhereSourceIsGenerated() *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return s.GeneratedSource })
}

// WhereHasAnyAttribution keeps symbols that carry at least one of
// object path or source path - i.e. were successfully cross-referenced
// against the object files / ninja graph.
func (g *SymbolGroup) WhereHasAnyAttribution() *SymbolGroup {
	return g.filterLeaf(func(s *Symbol) bool { return s.ObjectPath != "" || s.SourcePath != "" })
}

// Sorted returns symbols ordered by |PSS| descending, then by Name. A
// group-of-groups sorts its children by the same rule and recurses so
// that nested groups also come back sorted.
func (g *SymbolGroup) Sorted() *SymbolGroup {
	if g.children != nil {
		sortedChildren := make([]*SymbolGroup, len(g.children))
		for i, c := range g.children {
			sortedChildren[i] = c.Sorted()
		}
		slices.SortStableFunc(sortedChildren, func(a, b *SymbolGroup) int {
			return absCompare(a.PSS(), b.PSS(), a.Name, b.Name)
		})
		return newGroupOfGroups(g.Name, sortedChildren)
	}

	out := append([]*Symbol(nil), g.symbols...)
	slices.SortStableFunc(out, func(a, b *Symbol) int {
		return absCompare(a.PSS(), b.PSS(), a.Name, b.Name)
	})
	return (&SymbolGroup{Name: g.Name, symbols: out})
}

// absCompare orders by |PSS| descending, then by name ascending,
// returning the three-way result slices.SortStableFunc expects.
func absCompare(a, b float64, nameA, nameB string) int {
	aa, ab := abs(a), abs(b)
	switch {
	case aa > ab:
		return -1
	case aa < ab:
		return 1
	case nameA < nameB:
		return -1
	case nameA > nameB:
		return 1
	default:
		return 0
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// GroupedByName buckets symbols by Name, truncated to the path
// component depth given by depth (0 = no truncation), producing a
// group-of-groups. depth applies to '::'-separated components from the
// left, matching the reference tool's "drill into a namespace" use.
func (g *SymbolGroup) GroupedByName(depth int) *SymbolGroup {
	return g.groupedBy(func(s *Symbol) string { return truncateDepth(s.Name, depth) })
}

func (g *SymbolGroup) GroupedByFullName() *SymbolGroup {
	return g.groupedBy(func(s *Symbol) string { return s.FullName })
}

func (g *SymbolGroup) GroupedBySection() *SymbolGroup {
	return g.groupedBy(func(s *Symbol) string { return s.SectionName })
}

func (g *SymbolGroup) groupedBy(keyFn func(*Symbol) string) *SymbolGroup {
	byKey := make(map[string][]*Symbol)
	var order []string
	for _, s := range g.Symbols() {
		key := keyFn(s)
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], s)
	}

	children := make([]*SymbolGroup, 0, len(order))
	for _, key := range order {
		children = append(children, &SymbolGroup{Name: key, symbols: byKey[key]})
	}
	return newGroupOfGroups(g.Name, children)
}

func truncateDepth(name string, depth int) string {
	if depth <= 0 {
		return name
	}
	parts := strings.Split(name, "::")
	if len(parts) <= depth {
		return name
	}
	return strings.Join(parts[:depth], "::")
}

// Union returns the symbols present in either group (deduplicated by
// identity).
func (g *SymbolGroup) Union(other *SymbolGroup) *SymbolGroup {
	seen := make(map[*Symbol]bool)
	var out []*Symbol
	for _, s := range g.Symbols() {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range other.Symbols() {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return NewSymbolGroup(out)
}

// Difference returns the symbols in g that are not in other (by
// identity).
func (g *SymbolGroup) Difference(other *SymbolGroup) *SymbolGroup {
	exclude := make(map[*Symbol]bool, other.Count())
	for _, s := range other.Symbols() {
		exclude[s] = true
	}
	return g.filterLeaf(func(s *Symbol) bool { return !exclude[s] })
}

// IsSubsetOf reports whether every symbol in g (by identity) is also in
// other.
func (g *SymbolGroup) IsSubsetOf(other *SymbolGroup) bool {
	present := make(map[*Symbol]bool, other.Count())
	for _, s := range other.Symbols() {
		present[s] = true
	}
	for _, s := range g.Symbols() {
		if !present[s] {
			return false
		}
	}
	return true
}

// Equal reports whether g and other contain exactly the same symbols
// (by identity), regardless of order.
func (g *SymbolGroup) Equal(other *SymbolGroup) bool {
	return g.Count() == other.Count() && g.IsSubsetOf(other)
}

// Names returns the FullName of every leaf symbol in the group, for
// callers (CLI listings) that want a plain name list without walking
// the group themselves.
func (g *SymbolGroup) Names() []string {
	return namesOf(g.Symbols())
}

// namesOf is a small helper exercising pkg/utils.Map.
func namesOf(symbols []*Symbol) []string {
	return utils.Map(symbols, func(s *Symbol) string { return s.FullName })
}
