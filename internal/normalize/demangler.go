package normalize

import (
	"bufio"
	"os/exec"
	"strings"

	"github.com/yue/binsizer/internal/sizerr"
)

// CxxFiltDemangler pipes names through "<toolPrefix>c++filt" in a
// single invocation, matching the reference tool's own batching (one
// long-lived process fed one name per line, rather than a process per
// symbol).
type CxxFiltDemangler struct {
	ToolPrefix string
}

func (d CxxFiltDemangler) Demangle(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	cmd := exec.Command(d.ToolPrefix+"c++filt")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, sizerr.NewToolFailure([]string{d.ToolPrefix + "c++filt"}, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, sizerr.NewToolFailure([]string{d.ToolPrefix + "c++filt"}, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, sizerr.NewToolFailure([]string{d.ToolPrefix + "c++filt"}, err)
	}

	go func() {
		for _, n := range names {
			stdin.Write([]byte(n + "\n"))
		}
		stdin.Close()
	}()

	out := make([]string, 0, len(names))
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		out = append(out, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, sizerr.NewToolFailure([]string{d.ToolPrefix + "c++filt"}, err)
	}
	if len(out) != len(names) {
		return nil, sizerr.NewIntegrityError("c++filt returned %d lines for %d input names", len(out), len(names))
	}
	return out, nil
}

// noopDemangler passes names through unchanged, useful when a mangled
// name never appears (e.g. names already demangled by a prior stage)
// or in tests that don't want to shell out.
type noopDemangler struct{}

func (noopDemangler) Demangle(names []string) ([]string, error) {
	return append([]string(nil), names...), nil
}

var _ Demangler = CxxFiltDemangler{}
var _ Demangler = noopDemangler{}

func isRelevantMangledName(name string) bool {
	return strings.HasPrefix(name, "_Z") || strings.HasPrefix(name, "__Z")
}
