package filex

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// EnsureParentDir creates the directory that will hold file, relative paths
// resolved against the working directory, and returns its absolute path.
func EnsureParentDir(fs afero.Fs, file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", file, err)
	}

	dir := filepath.Dir(abs)

	if err := fs.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
