// Package linkermap parses a GNU gold linker map file (optionally
// gzip-compressed) into section and symbol records. It implements the
// same state machine as the reference parser: a Header region before
// any "Common symbol" or "Memory map" banner, a Common symbols region
// for the not-yet-addressed allocation table, and a Memory map region
// that carries the bulk of per-symbol information.
//
// Within the memory map, a normal symbol spans two or more physical
// lines: the mangled name lives on the ".text.<name>  0xADDR  0xSIZE
// path" subsection line, and a real unmangled name (when present)
// arrives on a follow-up line carrying its own address. A line whose
// trailing fields overran the formatter's column width is rejoined
// from the following physical line rather than misparsed.
package linkermap

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/yue/binsizer/internal/sizerr"
)

// mergeGapSentinel is the magic address gold emits for a symbol whose
// placement was decided by a string-merge or similar linker pass; such
// an entry carries no real address on its own subsection line, and the
// real address must be recovered from a follow-up line or from the
// previous symbol's end address.
const mergeGapSentinel = 0xffffffffffffffff

// Section is one top-level output section entry ("OUTPUT .text ...").
type Section struct {
	Name    string
	Address uint64
	Size    uint64
}

// Symbol is one symbol line parsed from the memory map, in linker-map
// address order, not yet normalized (names still carry raw linker
// decorations such as "[clone ...]" suffixes or "_ZN..." mangling).
// Size never yet includes padding - that is computed downstream once
// the full symbol list for a section is known.
type Symbol struct {
	SectionName string
	Address     uint64
	Size        uint64
	Name        string
	ObjectPath  string // blank for "** fill"/"** merge strings"/similar synthetic entries
}

func (s Symbol) endAddress() uint64 {
	return s.Address + s.Size
}

// ParseResult is the parser's complete output: the section size table
// and every symbol line encountered across all sections.
type ParseResult struct {
	Sections []Section
	Symbols  []Symbol
}

// ParseFile opens path (transparently gzip-decompressing if the file
// starts with the gzip magic header) and parses it.
func ParseFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sizerr.NewConfigError("opening linker map %q: %v", path, err)
	}
	defer f.Close()

	r, err := maybeDecompress(f)
	if err != nil {
		return nil, sizerr.NewIntegrityError("decompressing linker map %q: %v", path, err)
	}
	return Parse(r)
}

func maybeDecompress(f *os.File) (io.Reader, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}

// parser walks the map's lines with a single cursor shared by every
// helper, mirroring the reference implementation's line-iterator
// style: a nested helper that consumes a look-ahead line advances the
// same cursor the caller resumes from.
type parser struct {
	lines         []string
	pos           int
	commonSymbols []Symbol
}

func (p *parser) nextLine() (string, bool) {
	if p.pos >= len(p.lines) {
		return "", false
	}
	line := p.lines[p.pos]
	p.pos++
	return line, true
}

// skipToLineWithPrefix advances past lines matching none of prefixes,
// returning the first line that does (or false at end of input).
func (p *parser) skipToLineWithPrefix(prefixes ...string) (string, bool) {
	for {
		line, ok := p.nextLine()
		if !ok {
			return "", false
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(line, prefix) {
				return line, true
			}
		}
	}
}

// Parse runs the full state machine over r.
func Parse(r io.Reader) (*ParseResult, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}

	p := &parser{lines: lines}
	result := &ParseResult{}

	for {
		line, ok := p.skipToLineWithPrefix("Common symbol", "Memory map")
		if !ok {
			break
		}
		if strings.HasPrefix(line, "Common symbol") {
			common, err := p.parseCommonSymbols()
			if err != nil {
				return nil, err
			}
			p.commonSymbols = common
			continue
		}
		if strings.HasPrefix(line, "Memory map") {
			if err := p.parseSections(result); err != nil {
				return nil, err
			}
		}
		break
	}
	return result, nil
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

// parseCommonSymbols reads the "Common symbol / size / file" table
// that precedes the memory map, producing one Symbol per entry with
// address left at 0 (it is not yet allocated). These are spliced into
// .bss's symbol list once the memory map reaches that section.
//
//	Common symbol       size              file
//
//	ff_cos_131072       0x40000           obj/third_party/ffmpeg.o
//	ff_cos_131072_fixed
//	                    0x20000           obj/third_party/ffmpeg.o
func (p *parser) parseCommonSymbols() ([]Symbol, error) {
	if _, ok := p.nextLine(); !ok { // blank separator line after the banner
		return nil, nil
	}

	var ret []Symbol
	for {
		line, ok := p.nextLine()
		if !ok {
			break
		}
		parts, err := p.parsePossiblyWrappedParts(line, 3)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			break
		}
		name, sizeStr, path := parts[0], parts[1], parts[2]
		size, err := parseHex(sizeStr)
		if err != nil {
			return nil, sizerr.NewIntegrityError("common symbol %q: parsing size %q: %v", name, sizeStr, err)
		}
		ret = append(ret, Symbol{SectionName: ".bss", Size: size, Name: name, ObjectPath: path})
	}
	return ret, nil
}

func (p *parser) parseSections(result *ParseResult) error {
	for {
		line, ok := p.skipToLineWithPrefix(".")
		if !ok {
			break
		}
		parts, err := p.parsePossiblyWrappedParts(line, 3)
		if err != nil {
			return err
		}
		if len(parts) == 0 {
			break
		}
		sectionName := parts[0]
		sectionAddress, err := parseHex(parts[1])
		if err != nil {
			return sizerr.NewIntegrityError("section %q: parsing address %q: %v", sectionName, parts[1], err)
		}
		sectionSize, err := parseHex(parts[2])
		if err != nil {
			return sizerr.NewIntegrityError("section %q: parsing size %q: %v", sectionName, parts[2], err)
		}
		result.Sections = append(result.Sections, Section{Name: sectionName, Address: sectionAddress, Size: sectionSize})

		if sectionName == ".bss" || sectionName == ".rodata" || sectionName == ".text" || strings.HasPrefix(sectionName, ".data") {
			if err := p.parseSectionSymbols(&result.Symbols, sectionName, sectionAddress, sectionSize); err != nil {
				return sizerr.NewIntegrityError("section %q: %v", sectionName, err)
			}
		}
	}
	return nil
}

// parseSectionSymbols parses every subsection entry belonging to one
// top-level section, appending to the shared, cross-section symbols
// slice. It implements §4.5's three synthetic-entry rules: common
// symbols prepended to .bss, a padding-only "** symbol gap N"
// placeholder synthesized across a merge-gap sentinel, and a trailing
// "** symbol gap N (end of section)" placeholder when the last symbol
// ends before the section's nominal extent.
func (p *parser) parseSectionSymbols(symbols *[]Symbol, sectionName string, sectionAddress, sectionSize uint64) error {
	if sectionName == ".bss" {
		*symbols = append(*symbols, p.commonSymbols...)
	}

	prefixLen := len(sectionName) + 1 // +1 for the trailing '.'
	gapCount := 0
	mergeStart := int64(sectionAddress)

	line, ok := p.nextLine()
	if !ok {
		return nil
	}
	for {
		if line == "" || strings.TrimSpace(line) == "" {
			break
		}

		if strings.HasPrefix(line, " **") {
			var name string
			if zeroIdx := strings.IndexByte(line, '0'); zeroIdx == -1 {
				// Line wraps: the bookkeeping name alone overflowed.
				name = strings.TrimSpace(line)
				nl, ok := p.nextLine()
				if !ok {
					return fmt.Errorf("unexpected end of input after wrapped %q entry", name)
				}
				line = nl
			} else {
				name = strings.TrimSpace(line[:zeroIdx])
				line = line[zeroIdx:]
			}
			parts, err := p.parsePossiblyWrappedParts(line, 2)
			if err != nil {
				return err
			}
			if len(parts) != 2 {
				return fmt.Errorf("malformed %q entry", name)
			}
			nl, ok := p.nextLine()
			if ok {
				line = nl
			} else {
				line = ""
			}
			if name == "** common" {
				// Already accounted for via the common symbols table.
				continue
			}
			addr, err := parseHex(parts[0])
			if err != nil {
				return fmt.Errorf("%q: parsing address %q: %v", name, parts[0], err)
			}
			size, err := parseHex(parts[1])
			if err != nil {
				return fmt.Errorf("%q: parsing size %q: %v", name, parts[1], err)
			}
			*symbols = append(*symbols, Symbol{SectionName: sectionName, Address: addr, Size: size, Name: name})
			if mergeStart > 0 {
				mergeStart += int64(size)
			}
			continue
		}

		// A normal subsection entry: the mangled name, address, and
		// size on one (possibly wrapped) line, optionally followed by
		// an unmangled-name line carrying its own address.
		parts, err := p.parsePossiblyWrappedParts(line, 4)
		if err != nil {
			return err
		}
		if len(parts) != 4 {
			return fmt.Errorf("malformed subsection entry %q", line)
		}
		subsectionName, addrStr, sizeStr, path := parts[0], parts[1], parts[2], parts[3]
		if !strings.HasPrefix(subsectionName, sectionName) {
			return fmt.Errorf("subsection name %q does not start with section %q", subsectionName, sectionName)
		}
		size, err := parseHex(sizeStr)
		if err != nil {
			return fmt.Errorf("%q: parsing size %q: %v", subsectionName, sizeStr, err)
		}
		mangledName := subsectionName[prefixLen:]

		var name, addrStr2 string
		for {
			nl, ok := p.nextLine()
			if !ok {
				line = ""
				break
			}
			line = strings.TrimRight(nl, " \t")
			if line == "" || strings.HasPrefix(line, " .") {
				break
			}
			if strings.HasPrefix(line, " ** fill") {
				// Alignment is recomputed from addresses later; clang
				// emits these, gcc does not.
				continue
			}
			if strings.HasPrefix(line, " **") {
				break
			}
			if name == "" {
				nameParts, err := p.parsePossiblyWrappedParts(line, 2)
				if err != nil {
					return err
				}
				if len(nameParts) == 2 {
					addrStr2, name = nameParts[0], nameParts[1]
				}
			}
		}

		addrVal, addrErr := parseHex(addrStr)
		var address uint64
		if addrErr == nil && addrVal == mergeGapSentinel {
			switch {
			case addrStr2 != "":
				a, err := parseHex(addrStr2)
				if err != nil {
					return fmt.Errorf("%q: parsing follow-up address %q: %v", mangledName, addrStr2, err)
				}
				address = a - 1
			case len(*symbols) > 0 && (*symbols)[len(*symbols)-1].Address > 0:
				address = (*symbols)[len(*symbols)-1].endAddress()
			default:
				address = 0
			}
			mergeStart = int64(address) + int64(size)
		} else {
			if addrErr != nil {
				return fmt.Errorf("%q: parsing address %q: %v", subsectionName, addrStr, addrErr)
			}
			address = addrVal
			if mergeStart != 0 {
				mergeSize := int64(address) - mergeStart
				mergeStart = 0
				if mergeSize > 0 {
					*symbols = append(*symbols, Symbol{
						SectionName: sectionName,
						Address:     address,
						Name:        fmt.Sprintf("** symbol gap %d", gapCount),
					})
					gapCount++
				}
			}
		}

		finalName := name
		if finalName == "" {
			finalName = mangledName
		}
		*symbols = append(*symbols, Symbol{SectionName: sectionName, Address: address, Size: size, Name: finalName, ObjectPath: path})
	}

	if sectionName != ".bss" && len(*symbols) > 0 {
		sectionEnd := sectionAddress + sectionSize
		if last := (*symbols)[len(*symbols)-1]; last.endAddress() < sectionEnd {
			*symbols = append(*symbols, Symbol{
				SectionName: sectionName,
				Address:     sectionEnd,
				Name:        fmt.Sprintf("** symbol gap %d (end of section)", gapCount),
			})
		}
	}
	return nil
}

// parsePossiblyWrappedParts splits line into exactly count
// whitespace-delimited fields (the last field keeps any interior
// whitespace). If line underflows count, the next physical line is
// consumed and split for the remainder, rejoining a record whose
// trailing fields overran the formatter's column width. Returns nil,
// nil for a blank line (the signal callers use to detect a table's
// end).
func (p *parser) parsePossiblyWrappedParts(line string, count int) ([]string, error) {
	parts := splitFields(line, count)
	if len(parts) == 0 {
		return nil, nil
	}
	if len(parts) != count {
		next, ok := p.nextLine()
		if !ok {
			return nil, fmt.Errorf("expected %d fields, got %d before end of input: %q", count, len(parts), line)
		}
		more := splitFields(next, count-len(parts))
		parts = append(parts, more...)
		if len(parts) != count {
			return nil, fmt.Errorf("expected %d fields across wrapped lines, got %d: %q / %q", count, len(parts), line, next)
		}
	}
	parts[len(parts)-1] = strings.TrimRight(parts[len(parts)-1], " \t")
	return parts, nil
}

// splitFields splits s on whitespace into at most n fields, the way
// Python's str.split(None, n-1) does: the first n-1 fields are single
// tokens, and the nth keeps whatever (possibly multi-word) text
// remains. A blank or empty s yields nil.
func splitFields(s string, n int) []string {
	if n <= 0 {
		return nil
	}
	var parts []string
	rest := s
	for len(parts) < n-1 {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		idx := strings.IndexAny(rest, " \t")
		if idx == -1 {
			parts = append(parts, rest)
			rest = ""
			break
		}
		parts = append(parts, rest[:idx])
		rest = rest[idx:]
	}
	rest = strings.TrimLeft(rest, " \t")
	rest = strings.TrimRight(rest, " \t\r\n")
	if rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, 64)
}
