// Package buildpaths resolves the two pieces of environment a size
// archive run needs before it can touch any tool: the output directory
// (where build.ninja and build_vars.txt live) and the tool prefix
// (the cross-compiler/binutils prefix used to invoke nm/c++filt).
package buildpaths

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/yue/binsizer/internal/sizerr"
)

// Resolver lazily detects and verifies the output directory and tool
// prefix, caching each the first time it is asked for. Callers that
// already know one or both values should set them directly rather than
// letting detection run.
type Resolver struct {
	OutputDirectory string
	ToolPrefix      string

	detectedOutputDir   bool
	detectedToolPrefix  bool
}

// New returns a Resolver seeded with explicit values (either may be
// empty to request auto-detection on first use).
func New(outputDirectory, toolPrefix string) *Resolver {
	return &Resolver{OutputDirectory: outputDirectory, ToolPrefix: toolPrefix}
}

// ResolveOutputDirectory returns r.OutputDirectory, detecting it from
// cwd by walking upward looking for build.ninja if it was not already
// set.
func (r *Resolver) ResolveOutputDirectory() (string, error) {
	if r.OutputDirectory != "" {
		return r.OutputDirectory, nil
	}
	if r.detectedOutputDir {
		return "", sizerr.NewConfigError("could not auto-detect an output directory (no build.ninja found above cwd)")
	}
	r.detectedOutputDir = true

	dir, err := os.Getwd()
	if err != nil {
		return "", sizerr.NewConfigError("could not determine working directory: %v", err)
	}
	for {
		if fileExists(filepath.Join(dir, "build.ninja")) {
			r.OutputDirectory = dir
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", sizerr.NewConfigError("could not auto-detect an output directory (no build.ninja found above %s)", dir)
		}
		dir = parent
	}
}

// ResolveToolPrefix returns r.ToolPrefix, detecting it from
// build_vars.txt's android_tool_prefix entry, falling back to scanning
// PATH for a bare c++filt if the output directory has no such entry.
func (r *Resolver) ResolveToolPrefix() (string, error) {
	if r.ToolPrefix != "" {
		return r.ToolPrefix, nil
	}
	if r.detectedToolPrefix {
		return "", sizerr.NewConfigError("could not auto-detect a tool prefix")
	}
	r.detectedToolPrefix = true

	outDir, err := r.ResolveOutputDirectory()
	if err == nil {
		if prefix, ok := readToolPrefixFromBuildVars(filepath.Join(outDir, "build_vars.txt")); ok {
			r.ToolPrefix = prefix
			return prefix, nil
		}
	}

	if path, lookErr := exec.LookPath("c++filt"); lookErr == nil {
		r.ToolPrefix = strings.TrimSuffix(path, "c++filt")
		return r.ToolPrefix, nil
	}

	return "", sizerr.NewConfigError("could not auto-detect a tool prefix: no build_vars.txt entry and no c++filt on PATH")
}

// VerifyOutputDirectory checks that build.ninja actually exists under
// dir, returning a ConfigError describing the miss if not.
func VerifyOutputDirectory(dir string) error {
	if !fileExists(filepath.Join(dir, "build.ninja")) {
		return sizerr.NewConfigError("output directory %q does not contain build.ninja", dir)
	}
	return nil
}

// VerifyToolPrefix checks that <prefix>c++filt resolves to an
// executable file, returning a ConfigError describing the miss if not.
func VerifyToolPrefix(prefix string) error {
	candidate := prefix + "c++filt"
	if _, err := exec.LookPath(candidate); err != nil {
		return sizerr.NewConfigError("tool prefix %q does not resolve to a c++filt binary: %v", prefix, err)
	}
	return nil
}

func readToolPrefixFromBuildVars(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "android_tool_prefix" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
