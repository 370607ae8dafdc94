// Package nmtool drives nm (and c++filt) to recover symbol aliases at
// shared addresses and per-object-file name lists, the two queries the
// linker map alone cannot answer.
package nmtool

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/yue/binsizer/internal/sizerr"
)

// NmSymbol is one line of `nm --defined-only` output.
type NmSymbol struct {
	Address uint64
	Size    uint64
	Code    byte
	Name    string
}

// ParseNmOutput parses `nm --no-sort --defined-only --demangle` output
// lines of the form "<addr> [<size>] <code> <name>".
func ParseNmOutput(r io.Reader) ([]NmSymbol, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out []NmSymbol
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sym, ok, err := parseNmLine(line)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sym)
		}
	}
	return out, scanner.Err()
}

func parseNmLine(line string) (NmSymbol, bool, error) {
	fields := strings.Fields(line)
	// Defined symbols are either "addr size code name" or, for
	// zero-size entries, "addr code name".
	var addrStr, sizeStr, codeStr, name string
	switch len(fields) {
	case 3:
		addrStr, codeStr = fields[0], fields[1]
		name = fields[2]
	case 4:
		addrStr, sizeStr, codeStr = fields[0], fields[1], fields[2]
		name = strings.Join(fields[3:], " ")
	default:
		return NmSymbol{}, false, nil
	}

	addr, err := strconv.ParseUint(addrStr, 16, 64)
	if err != nil {
		return NmSymbol{}, false, nil
	}
	var size uint64
	if sizeStr != "" {
		size, _ = strconv.ParseUint(sizeStr, 16, 64)
	}
	if len(codeStr) != 1 {
		return NmSymbol{}, false, nil
	}
	if !IsRelevantNmName(name) {
		return NmSymbol{}, false, nil
	}
	return NmSymbol{Address: addr, Size: size, Code: codeStr[0], Name: name}, true, nil
}

// CollectAliasesByAddress runs nm over elfPath and groups the resulting
// defined symbols by address, the grouping that later becomes each
// symbol's AliasGroup.
func CollectAliasesByAddress(runner CommandRunner, toolPrefix, elfPath string) (map[uint64][]NmSymbol, error) {
	args := []string{"--no-sort", "--defined-only", "--demangle", elfPath}
	out, err := runner.Run(toolPrefix+"nm", args)
	if err != nil {
		return nil, sizerr.NewToolFailure(append([]string{toolPrefix + "nm"}, args...), err)
	}

	symbols, err := ParseNmOutput(strings.NewReader(out))
	if err != nil {
		return nil, err
	}

	byAddress := make(map[uint64][]NmSymbol)
	for _, s := range symbols {
		byAddress[s.Address] = append(byAddress[s.Address], s)
	}
	return byAddress, nil
}

// CommandRunner abstracts process execution so tests can substitute a
// fake without touching the real toolchain.
type CommandRunner interface {
	Run(name string, args []string) (string, error)
}

// ExecRunner runs commands via os/exec, the production CommandRunner.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args []string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.Output()
	return string(out), err
}

// BatchCollectNames resolves the per-object-file symbol name lists
// needed for source attribution, batching plain object files up to 50
// per nm invocation (nm's own multi-file output format, each prefixed
// by its own "<path>:" header line) and invoking archives one at a
// time since nm groups all of an archive's members under one header
// set.
func BatchCollectNames(runner CommandRunner, toolPrefix string, objectPaths []string) (map[string][]string, error) {
	result := make(map[string][]string)

	var plain, archives []string
	for _, p := range objectPaths {
		if strings.HasSuffix(p, ".a") {
			archives = append(archives, p)
		} else {
			plain = append(plain, p)
		}
	}

	const batchSize = 50
	for i := 0; i < len(plain); i += batchSize {
		end := i + batchSize
		if end > len(plain) {
			end = len(plain)
		}
		batch := plain[i:end]
		names, err := collectBatch(runner, toolPrefix, batch)
		if err != nil {
			return nil, err
		}
		for path, syms := range names {
			result[path] = syms
		}
	}

	for _, archive := range archives {
		names, err := collectBatch(runner, toolPrefix, []string{archive})
		if err != nil {
			return nil, err
		}
		for path, syms := range names {
			result[path] = syms
		}
	}

	return result, nil
}

func collectBatch(runner CommandRunner, toolPrefix string, paths []string) (map[string][]string, error) {
	args := append([]string{"--no-sort", "--defined-only"}, paths...)
	out, err := runner.Run(toolPrefix+"nm", args)
	if err != nil {
		return nil, sizerr.NewToolFailure(append([]string{toolPrefix + "nm"}, args...), err)
	}
	return parseMultiFileOutput(out, paths), nil
}

// parseMultiFileOutput splits nm's multi-file output on "<path>:"
// header lines (emitted whenever more than one file - or an archive's
// members - is passed on the command line) and collects the relevant
// names under each.
func parseMultiFileOutput(out string, paths []string) map[string][]string {
	result := make(map[string][]string)
	currentPath := ""
	if len(paths) == 1 {
		currentPath = paths[0]
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if header, ok := strings.CutSuffix(line, ":"); ok && !strings.ContainsAny(header, " \t") {
			currentPath = header
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		name := strings.Join(fields[2:], " ")
		if IsRelevantObjectFileName(name) {
			result[currentPath] = append(result[currentPath], name)
		}
	}

	for path, names := range result {
		sort.Strings(names)
		result[path] = names
	}
	return result
}

// WorkerRequest/WorkerResponse are the length-prefixed frames exchanged
// between the master process and a helper-process worker re-invoking
// this binary with the hidden "__nm_worker" subcommand, used when a
// caller wants nm invocations to run in a separate OS process (e.g. to
// isolate crashes from a misbehaving cross toolchain).
type WorkerRequest struct {
	ToolPrefix string
	Paths      []string
}

type WorkerResponse struct {
	Names map[string][]string
	Err   string
}

// WriteFrame writes a length-prefixed line: a decimal byte count,
// newline, then exactly that many bytes of payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "%d\n", len(payload)); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one WriteFrame-encoded frame, or io.EOF at a clean
// stream close.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil {
		return nil, fmt.Errorf("corrupt frame header %q: %w", header, err)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
