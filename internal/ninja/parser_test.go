package ninja

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParse_ResolvesDirectSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.ninja"), "build obj/foo.o: cxx ../../src/foo.cc\n")

	mapper, err := Parse(dir)
	require.NoError(t, err)

	src, ok := mapper.FindSource("obj/foo.o", nil)
	assert.True(t, ok)
	assert.Equal(t, "../../src/foo.cc", src)
}

func TestParse_FollowsSubninja(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.ninja"), "subninja sub.ninja\n")
	writeFile(t, filepath.Join(dir, "sub.ninja"), "build obj/bar.o: cxx ../../src/bar.cc\n")

	mapper, err := Parse(dir)
	require.NoError(t, err)

	src, ok := mapper.FindSource("obj/bar.o", nil)
	assert.True(t, ok)
	assert.Equal(t, "../../src/bar.cc", src)
}

func TestParse_RejoinsEscapedLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.ninja"), "build obj/baz.o: cxx $\n  ../../src/baz.cc\n")

	mapper, err := Parse(dir)
	require.NoError(t, err)

	src, ok := mapper.FindSource("obj/baz.o", nil)
	assert.True(t, ok)
	assert.Equal(t, "../../src/baz.cc", src)
}

func TestParse_DuplicateSubninjaIsIntegrityError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.ninja"), "subninja sub.ninja\nsubninja sub.ninja\n")
	writeFile(t, filepath.Join(dir, "sub.ninja"), "build obj/x.o: cxx ../../src/x.cc\n")

	_, err := Parse(dir)
	assert.Error(t, err)
}

func TestFindSource_ArchiveMemberLookup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.ninja"), "build obj/member.o: cxx ../../src/member.cc\n")

	mapper, err := Parse(dir)
	require.NoError(t, err)

	diag := newTestDiagnostics()
	src, ok := mapper.FindSource("obj/lib.a(member.o)", diag)
	assert.True(t, ok)
	assert.Equal(t, "../../src/member.cc", src)
}

func TestFindSource_MissRecordsDataGap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "build.ninja"), "")

	mapper, err := Parse(dir)
	require.NoError(t, err)

	diag := newTestDiagnostics()
	_, ok := mapper.FindSource("obj/missing.o", diag)
	assert.False(t, ok)
	assert.Equal(t, 1, mapper.UnmatchedCount())
	assert.Equal(t, 1, diag.Count("ninja_unmatched_object"))
}
