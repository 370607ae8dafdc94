package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGnArgs_ParsesKeyValuePairs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "args.gn"), []byte(
		"# comment\nis_debug = false\ntarget_cpu = \"arm64\"\n\n"), 0o644))

	args, err := ParseGnArgs(dir)
	require.NoError(t, err)
	assert.Equal(t, "false", args["is_debug"])
	assert.Equal(t, `"arm64"`, args["target_cpu"])
}

func TestParseGnArgs_MissingFileReturnsEmptyMap(t *testing.T) {
	args, err := ParseGnArgs(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestDetectGitRevision_NonRepoReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", DetectGitRevision(t.TempDir()))
}

func TestCreateMetadata_IncludesMapFilename(t *testing.T) {
	metadata, err := CreateMetadata("", "", "", "/path/to/out.map")
	require.NoError(t, err)
	assert.Equal(t, "/path/to/out.map", metadata["map_filename"])
}
