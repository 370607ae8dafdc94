package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yue/binsizer/internal/futures"
	"github.com/yue/binsizer/internal/sizerr"
)

func TestRun_ProducesSizeInfoFromMapOnly(t *testing.T) {
	restore := futures.SetDisableAsyncForTesting(true)
	defer restore()

	dir := t.TempDir()
	mapPath := filepath.Join(dir, "out.map")
	require.NoError(t, os.WriteFile(mapPath, []byte(
		"Memory map\n\n.text           0x1000  0x20\n .text.DoFoo    0x1000       0x10 obj/foo.o\n"), 0o644))

	diag := sizerr.NewDiagnostics(func(string, ...any) {})
	result, err := Run(ArchiveOptions{MapFile: mapPath}, diag)
	require.NoError(t, err)
	require.NotNil(t, result.SizeInfo)

	var found bool
	for _, s := range result.SizeInfo.RawSymbols {
		if s.Name == "DoFoo" {
			found = true
		}
	}
	assert.True(t, found, "expected a DoFoo symbol among %v", result.SizeInfo.RawSymbols)
}

func TestRun_MissingMapFileIsConfigError(t *testing.T) {
	_, err := Run(ArchiveOptions{MapFile: "/does/not/exist.map"}, nil)
	assert.Error(t, err)
	var cfgErr *sizerr.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCoverageReport_RatioOfOneWhenNoSymbols(t *testing.T) {
	assert.Equal(t, 1.0, CoverageReport{}.SourceCoverageRatio())
}
