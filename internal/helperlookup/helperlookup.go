// Package helperlookup finds bundled helper executables (plugin hosts,
// external decoders) on disk, generalising the teacher's
// GetFfmpegBinaryName/IsFfmpegAvailable OS-name resolution into the
// documented resource-dir → library-dir → bundled-helpers-dir →
// own-binary-dir search order (spec.md §6).
package helperlookup

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/sonicvg/svcore/internal/apperrors"
)

// Dirs is the ordered list of directories to search, from highest to
// lowest priority.
type Dirs struct {
	ResourceDir string
	LibraryDir  string
	HelpersDir  string
}

// BinaryName returns the OS-appropriate executable name for name (with
// ".exe" on Windows), matching the teacher's GetFfmpegBinaryName shape.
func BinaryName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// Find resolves name to an absolute path, searching Dirs in order and
// finally the directory of the running binary, then falling back to
// the system PATH.
func Find(dirs Dirs, name string) (string, error) {
	binName := BinaryName(name)

	for _, dir := range []string{dirs.ResourceDir, dirs.LibraryDir, dirs.HelpersDir} {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, binName)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if exeDir, err := ownBinaryDir(); err == nil {
		candidate := filepath.Join(exeDir, binName)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(binName); err == nil {
		return path, nil
	}

	return "", apperrors.Newf("helperlookup: %q not found in resource/library/helpers/own-binary dirs or PATH", name).
		Component("helperlookup").Category(apperrors.CategoryResource).
		Context("binary", binName).Build()
}

// Available reports whether name can be resolved by Find.
func Available(dirs Dirs, name string) bool {
	_, err := Find(dirs, name)
	return err == nil
}

func ownBinaryDir() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", apperrors.Wrap(err).Component("helperlookup").Category(apperrors.CategoryResource).Build()
	}
	return filepath.Dir(exePath), nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
