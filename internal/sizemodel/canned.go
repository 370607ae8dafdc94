package sizemodel

import (
	"regexp"

	"gopkg.in/yaml.v3"
)

// CannedRule is one entry of a YAML-declared grouping rule set: Name
// labels the resulting bucket, and exactly one of the match fields
// selects which symbols fall into it. Rules are applied in order and
// are mutually exclusive - a symbol that already landed in an earlier
// bucket is not reconsidered by a later one.
type CannedRule struct {
	Name              string `yaml:"name"`
	SourcePathMatches string `yaml:"source_path_matches,omitempty"`
	ObjectPathMatches string `yaml:"object_path_matches,omitempty"`
	FullNameMatches   string `yaml:"full_name_matches,omitempty"`
	IsGenerated       bool   `yaml:"is_generated,omitempty"`
}

// CannedRuleSet is the top-level YAML document: an ordered rule list
// plus the name given to whatever remains unmatched.
type CannedRuleSet struct {
	Rules       []CannedRule `yaml:"rules"`
	OtherBucket string       `yaml:"other_bucket"`
}

// ParseCannedRuleSet decodes a YAML rule document as used by the
// by-component and by-generated-source canned queries.
func ParseCannedRuleSet(data []byte) (*CannedRuleSet, error) {
	var set CannedRuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	if set.OtherBucket == "" {
		set.OtherBucket = "Other"
	}
	return &set, nil
}

// grouper accumulates named buckets while tracking the still-unmatched
// remainder, mirroring the reference tool's incremental "Add a named
// slice, then hand the rest to the next rule" grouping idiom.
type grouper struct {
	remainder *SymbolGroup
	children  []*SymbolGroup
}

func newGrouper(universe *SymbolGroup) *grouper {
	return &grouper{remainder: universe}
}

// add carves matched out of the remainder into a bucket named name.
func (g *grouper) add(name string, matched *SymbolGroup) {
	if matched.Count() == 0 {
		return
	}
	g.children = append(g.children, matched.SetName(name))
	g.remainder = g.remainder.Difference(matched)
}

// finalize appends whatever is left under otherName and returns the
// accumulated group-of-groups.
func (g *grouper) finalize(name, otherName string) *SymbolGroup {
	if g.remainder.Count() > 0 {
		g.children = append(g.children, g.remainder.SetName(otherName))
	}
	return newGroupOfGroups(name, g.children)
}

// ApplyCannedRuleSet buckets universe's symbols per set's ordered rules,
// with anything unmatched collected into set.OtherBucket.
func ApplyCannedRuleSet(universe *SymbolGroup, set *CannedRuleSet) (*SymbolGroup, error) {
	g := newGrouper(universe)
	for _, rule := range set.Rules {
		matched, err := matchRule(g.remainder, rule)
		if err != nil {
			return nil, err
		}
		g.add(rule.Name, matched)
	}
	return g.finalize("canned", set.OtherBucket), nil
}

func matchRule(universe *SymbolGroup, rule CannedRule) (*SymbolGroup, error) {
	switch {
	case rule.SourcePathMatches != "":
		re, err := regexp.Compile(rule.SourcePathMatches)
		if err != nil {
			return nil, err
		}
		return universe.WhereSourcePathMatches(re), nil
	case rule.ObjectPathMatches != "":
		re, err := regexp.Compile(rule.ObjectPathMatches)
		if err != nil {
			return nil, err
		}
		return universe.WhereObjectPathMatches(re), nil
	case rule.FullNameMatches != "":
		re, err := regexp.Compile(rule.FullNameMatches)
		if err != nil {
			return nil, err
		}
		return universe.WhereFullNameMatches(re), nil
	case rule.IsGenerated:
		return universe.WhereSourceIsGenerated(), nil
	default:
		return NewSymbolGroup(nil), nil
	}
}

// GroupByChromeComponent is the canned query grouping symbols by the
// owning component path prefix (e.g. "third_party/", "base/",
// "content/"), collecting every symbol that matches no prefix into a
// single "Other" bucket.
func GroupByChromeComponent(universe *SymbolGroup, componentPrefixes []string) *SymbolGroup {
	g := newGrouper(universe)
	for _, prefix := range componentPrefixes {
		re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix))
		g.add(prefix, g.remainder.WhereSourcePathMatches(re))
	}
	return g.finalize("by_chrome_component", "Other")
}

// GroupByGeneratedSource splits a universe into generated vs
// hand-written source buckets, the simplest canned query.
func GroupByGeneratedSource(universe *SymbolGroup) *SymbolGroup {
	g := newGrouper(universe)
	g.add("Generated", universe.WhereSourceIsGenerated())
	return g.finalize("by_generated_source", "Not generated")
}
