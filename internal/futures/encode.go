package futures

import (
	"strconv"
	"strings"
)

// EncodeDictOfLists packs a map[string][]string into two strings: a key
// stream (keys joined by the separator) and a value stream (each
// element a comma-separated list of indices into a caller-provided path
// table, joined by the separator). This mirrors the reference
// implementation's reasoning: marshalling name -> [paths] maps across a
// process boundary with one allocation per entry is the dominant cost
// of the nm-driven analysis, so values are interned against a shared
// table rather than repeated per key.
//
// pathTable is populated (append-only, deduplicated) as entries are
// encoded and must be passed back unchanged to DecodeDictOfLists.
func EncodeDictOfLists(m map[string][]string) (keys string, values string, pathTable []string) {
	pathIndex := make(map[string]int)
	internPath := func(p string) int {
		if idx, ok := pathIndex[p]; ok {
			return idx
		}
		idx := len(pathTable)
		pathIndex[p] = idx
		pathTable = append(pathTable, p)
		return idx
	}

	var keyParts []string
	var valueParts []string
	for k, vs := range m {
		keyParts = append(keyParts, k)
		idxStrs := make([]string, len(vs))
		for i, v := range vs {
			idxStrs[i] = strconv.Itoa(internPath(v))
		}
		valueParts = append(valueParts, strings.Join(idxStrs, ","))
	}

	return strings.Join(keyParts, "\x1f"), strings.Join(valueParts, "\x1e"), pathTable
}

// DecodeDictOfLists reconstructs the map produced by EncodeDictOfLists in
// a single pass, without per-entry allocation beyond what is strictly
// needed to build the result slices.
func DecodeDictOfLists(keys string, values string, pathTable []string) map[string][]string {
	if keys == "" {
		return map[string][]string{}
	}
	keyParts := strings.Split(keys, "\x1f")
	valueParts := strings.Split(values, "\x1e")

	result := make(map[string][]string, len(keyParts))
	for i, k := range keyParts {
		if i >= len(valueParts) || valueParts[i] == "" {
			result[k] = nil
			continue
		}
		idxStrs := strings.Split(valueParts[i], ",")
		paths := make([]string, len(idxStrs))
		for j, s := range idxStrs {
			idx, _ := strconv.Atoi(s)
			paths[j] = pathTable[idx]
		}
		result[k] = paths
	}
	return result
}
