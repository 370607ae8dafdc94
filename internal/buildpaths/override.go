package buildpaths

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/yue/binsizer/internal/sizerr"
)

// Override is an optional YAML file (e.g. ".binsizer-paths.yaml") a
// caller can supply to pin the output directory and tool prefix
// without relying on auto-detection, useful for sandboxed or
// cross-compiled builds where the conventions paths.py assumes don't
// hold.
type Override struct {
	OutputDirectory string `yaml:"output_directory"`
	ToolPrefix      string `yaml:"tool_prefix"`
}

// LoadOverride reads and parses path. A missing file is not an error -
// it simply means no override applies.
func LoadOverride(path string) (*Override, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Override{}, nil
	}
	if err != nil {
		return nil, sizerr.NewConfigError("reading path override file %q: %v", path, err)
	}

	var o Override
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, sizerr.NewConfigError("parsing path override file %q: %v", path, err)
	}
	return &o, nil
}

// Apply seeds r with any non-empty fields from o, taking precedence
// over whatever r already held.
func (o *Override) Apply(r *Resolver) {
	if o.OutputDirectory != "" {
		r.OutputDirectory = o.OutputDirectory
	}
	if o.ToolPrefix != "" {
		r.ToolPrefix = o.ToolPrefix
	}
}
