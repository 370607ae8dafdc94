package buildpaths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOutputDirectory_ExplicitValueShortCircuits(t *testing.T) {
	r := New("/already/known", "")
	dir, err := r.ResolveOutputDirectory()
	require.NoError(t, err)
	assert.Equal(t, "/already/known", dir)
}

func TestResolveToolPrefix_FromBuildVars(t *testing.T) {
	outDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "build.ninja"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "build_vars.txt"), []byte("android_tool_prefix=/opt/toolchain/bin/arm-linux-androideabi-\nother_var=1\n"), 0o644))

	r := New(outDir, "")
	prefix, err := r.ResolveToolPrefix()
	require.NoError(t, err)
	assert.Equal(t, "/opt/toolchain/bin/arm-linux-androideabi-", prefix)
}

func TestVerifyOutputDirectory_MissingBuildNinja(t *testing.T) {
	err := VerifyOutputDirectory(t.TempDir())
	assert.Error(t, err)
}

func TestLoadOverride_MissingFileIsNotError(t *testing.T) {
	o, err := LoadOverride(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, o.OutputDirectory)
}

func TestOverride_ApplyTakesPrecedence(t *testing.T) {
	r := New("/old/dir", "")
	o := &Override{OutputDirectory: "/new/dir", ToolPrefix: "/new/prefix-"}
	o.Apply(r)
	assert.Equal(t, "/new/dir", r.OutputDirectory)
	assert.Equal(t, "/new/prefix-", r.ToolPrefix)
}
