package nmtool

import "strings"

// relevantObjectFileExclusions lists substrings that mark a synthetic
// nm object-file name as not worth attributing to a real source file
// (compiler-generated helpers, jump tables, string switch dispatch).
var relevantObjectFileExclusions = []string{
	"CSWTCH",
	"__compound_literal",
	"__func__",
	"table",
	"lock",
}

// IsRelevantNmName reports whether a raw nm symbol name is worth
// keeping at all, filtering out the handful of linker/compiler
// bookkeeping names nm emits that never correspond to user code.
func IsRelevantNmName(name string) bool {
	switch {
	case name == "":
		return false
	case name == "__tcf_0":
		return false
	case strings.HasPrefix(name, "startup"):
		return false
	case isCompilerLocalLabel(name):
		return false
	}
	return true
}

// isCompilerLocalLabel matches names like "._123" or ".L42" that GCC
// and clang emit for purely-local jump targets with no source meaning.
func isCompilerLocalLabel(name string) bool {
	if strings.HasPrefix(name, "._") && isAllDigits(name[2:]) {
		return true
	}
	if strings.HasPrefix(name, ".L") && len(name) > 2 {
		return true
	}
	return false
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

// IsRelevantObjectFileName reports whether an object-file-scoped
// symbol name (one nm associates with a specific .o, as opposed to a
// whole-archive alias lookup) should be kept for source attribution.
func IsRelevantObjectFileName(name string) bool {
	if !IsRelevantNmName(name) {
		return false
	}
	for _, excluded := range relevantObjectFileExclusions {
		if strings.Contains(name, excluded) {
			return false
		}
	}
	return true
}
