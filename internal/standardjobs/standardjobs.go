// Package standardjobs resolves the location of the bundled standard-jobs
// folder shipped alongside the deepwork binary. The folder itself holds
// human-authored job definitions and Markdown instructions — data consumed
// by the loader, not part of the core.
package standardjobs

import (
	"os"
	"path/filepath"
)

// Dir returns the bundled standard-jobs directory, resolved relative to the
// running executable's location rather than a hardcoded development path.
// If the executable's location can't be determined, it falls back to a
// directory relative to the current working directory.
func Dir() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join(".", "standard-jobs")
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		resolved = exe
	}
	return filepath.Join(filepath.Dir(resolved), "standard-jobs")
}
