// Package ninja parses a build.ninja graph (and the subninja files it
// includes) far enough to answer one question per output path: which
// source file produced it. It does not implement the ninja build
// language generally - only the "build <outputs>: rule <inputs>" line
// shape needed to map object files back to sources.
package ninja

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yue/binsizer/internal/sizerr"
)

var buildLineRe = regexp.MustCompile(`^build ([^:]+): \w+ (.*?)(?: \||\n|$)`)

// SourceMapper answers "what source produced this object file" queries
// over a parsed ninja graph. It also tracks how many lookups missed so
// that archive runs can report a coverage figure without aborting on
// every miss.
type SourceMapper struct {
	// outputToSources maps a build output path to the first input
	// listed for it - the thing libsupersize calls the "source".
	outputToSources map[string]string

	unmatchedCount int
}

func newSourceMapper() *SourceMapper {
	return &SourceMapper{outputToSources: make(map[string]string)}
}

// FindSource resolves objectPath to the source that produced it. It
// understands archive-qualified paths of the form "foo/bar.a(baz.o)",
// trying the archive path "foo/bar.a" itself, then "baz.o" as given,
// then "foo/baz.o" (the member next to its archive).
// Lookups that miss are counted and logged at most 10 times via diag;
// callers get "", false back either way.
func (m *SourceMapper) FindSource(objectPath string, diag *sizerr.Diagnostics) (string, bool) {
	if src, ok := m.findSourceInternal(objectPath); ok {
		return src, true
	}
	m.unmatchedCount++
	if diag != nil {
		diag.DataGap("ninja_unmatched_object", "no ninja build rule produced %q", objectPath)
	}
	return "", false
}

func (m *SourceMapper) findSourceInternal(objectPath string) (string, bool) {
	if src, ok := m.outputToSources[objectPath]; ok {
		return src, true
	}

	if archive, member, ok := splitArchiveMember(objectPath); ok {
		if src, ok := m.outputToSources[archive]; ok {
			return src, true
		}
		// The archive member itself may appear as a separate build
		// output (ar rcs archives list member .o outputs too).
		if src, ok := m.outputToSources[member]; ok {
			return src, true
		}
		if src, ok := m.outputToSources[filepath.Join(filepath.Dir(archive), member)]; ok {
			return src, true
		}
	}
	return "", false
}

// splitArchiveMember splits "foo/bar.a(baz.o)" into ("foo/bar.a",
// "baz.o", true), or returns ok=false for a plain path.
func splitArchiveMember(path string) (archive, member string, ok bool) {
	open := strings.IndexByte(path, '(')
	if open == -1 || !strings.HasSuffix(path, ")") {
		return "", "", false
	}
	return path[:open], path[open+1 : len(path)-1], true
}

// UnmatchedCount returns how many FindSource calls have missed so far.
func (m *SourceMapper) UnmatchedCount() int { return m.unmatchedCount }

// Parse reads outputDir's build.ninja, following subninja directives,
// and returns a SourceMapper over every "build output: rule inputs"
// line it finds. A subninja included more than once is an
// IntegrityError, matching the build graph's own invariant that a
// subninja file is a single compilation unit of the graph.
func Parse(outputDir string) (*SourceMapper, error) {
	mapper := newSourceMapper()
	seen := make(map[string]bool)

	root := filepath.Join(outputDir, "build.ninja")
	if err := parseOneFile(root, outputDir, mapper, seen); err != nil {
		return nil, err
	}
	return mapper, nil
}

func parseOneFile(path, outputDir string, mapper *SourceMapper, seen map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return sizerr.NewIntegrityError("resolving ninja file path %q: %v", path, err)
	}
	if seen[abs] {
		return sizerr.NewIntegrityError("subninja %q included more than once", path)
	}
	seen[abs] = true

	f, err := os.Open(path)
	if err != nil {
		return sizerr.NewConfigError("opening ninja file %q: %v", path, err)
	}
	defer f.Close()

	subninjas, err := scanBuildLines(f, mapper)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, rel := range subninjas {
		sub := filepath.Join(outputDir, rel)
		if err := parseOneFile(sub, outputDir, mapper, seen); err != nil {
			return err
		}
	}
	return nil
}

// scanBuildLines rejoins ninja's "$\n"-continued lines and extracts
// build and subninja directives, returning the subninja paths found.
// An output already mapped to a different source is an IntegrityError.
func scanBuildLines(r io.Reader, mapper *SourceMapper) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var subninjas []string
	var pending strings.Builder
	var dupErr error

	flush := func(line string) {
		switch {
		case strings.HasPrefix(line, "build "):
			matches := buildLineRe.FindStringSubmatch(line)
			if matches == nil {
				return
			}
			outputs := parseNinjaPathList(matches[1])
			inputs := parseNinjaPathList(matches[2])
			if len(inputs) == 0 {
				return
			}
			source := inputs[0]
			for _, out := range outputs {
				if prev, ok := mapper.outputToSources[out]; ok && prev != source && dupErr == nil {
					dupErr = sizerr.NewIntegrityError("ninja output %q listed with inputs %q and %q", out, prev, source)
				}
				mapper.outputToSources[out] = source
			}
		case strings.HasPrefix(line, "subninja "):
			subninjas = append(subninjas, strings.TrimSpace(strings.TrimPrefix(line, "subninja ")))
		}
	}

	for scanner.Scan() {
		raw := scanner.Text()
		if strings.HasSuffix(raw, "$") {
			pending.WriteString(strings.TrimSuffix(raw, "$"))
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString(raw)
			flush(pending.String())
			pending.Reset()
			continue
		}
		flush(raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, dupErr
	}
	return subninjas, nil
}

// parseNinjaPathList splits a space-separated ninja path list,
// honoring "\ " as an escaped literal space within a single path
// (ninja's own escaping convention for spaces in filenames).
func parseNinjaPathList(s string) []string {
	const placeholder = "\b"
	s = strings.ReplaceAll(s, `\ `, placeholder)
	var out []string
	for _, part := range strings.Fields(s) {
		out = append(out, strings.ReplaceAll(part, placeholder, " "))
	}
	return out
}
