package helperlookup

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, BinaryName(name))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestFindPrefersResourceDirOverLibraryDir(t *testing.T) {
	resourceDir := t.TempDir()
	libraryDir := t.TempDir()

	writeExecutable(t, resourceDir, "helper")
	writeExecutable(t, libraryDir, "helper")

	found, err := Find(Dirs{ResourceDir: resourceDir, LibraryDir: libraryDir}, "helper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resourceDir, BinaryName("helper")), found)
}

func TestFindFallsBackToLibraryDirWhenResourceDirMisses(t *testing.T) {
	resourceDir := t.TempDir()
	libraryDir := t.TempDir()

	writeExecutable(t, libraryDir, "helper")

	found, err := Find(Dirs{ResourceDir: resourceDir, LibraryDir: libraryDir}, "helper")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(libraryDir, BinaryName("helper")), found)
}

func TestFindSkipsNonExecutableCandidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, BinaryName("helper"))
	require.NoError(t, os.WriteFile(path, []byte("not executable"), 0o644))

	_, err := Find(Dirs{ResourceDir: dir}, "helper")
	assert.Error(t, err)
}

func TestFindReturnsErrorWhenNowhereResolves(t *testing.T) {
	_, err := Find(Dirs{}, "definitely-not-a-real-helper-binary-xyz")
	assert.Error(t, err)
}

func TestAvailableMirrorsFind(t *testing.T) {
	dir := t.TempDir()
	writeExecutable(t, dir, "helper")

	assert.True(t, Available(Dirs{ResourceDir: dir}, "helper"))
	assert.False(t, Available(Dirs{}, "definitely-not-a-real-helper-binary-xyz"))
}

func TestBinaryNameIsPlatformAppropriate(t *testing.T) {
	name := BinaryName("sonicvg-host")
	if runtime.GOOS == "windows" {
		assert.Equal(t, "sonicvg-host.exe", name)
	} else {
		assert.Equal(t, "sonicvg-host", name)
	}
}
