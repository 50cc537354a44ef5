// Package atomicfile replaces files by writing a sibling temporary file and
// renaming it over the target, so readers never see a partial write.
package atomicfile

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const dirMode = 0o750

// Write replaces path with data and applies perm. Parent directories are
// created as needed.
func Write(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return oops.
			With("path", dir).
			Wrapf(err, "creating directory")
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return oops.
			With("path", dir).
			Wrapf(err, "creating temporary file")
	}

	tempPath := tempFile.Name()
	defer func() {
		_ = os.Remove(tempPath)
	}()

	if _, writeErr := tempFile.Write(data); writeErr != nil {
		_ = tempFile.Close()
		return oops.
			With("path", tempPath).
			Wrapf(writeErr, "writing temporary file")
	}

	if closeErr := tempFile.Close(); closeErr != nil {
		return oops.
			With("path", tempPath).
			Wrapf(closeErr, "closing temporary file")
	}

	if chmodErr := os.Chmod(tempPath, perm); chmodErr != nil {
		return oops.
			With("path", tempPath).
			Wrapf(chmodErr, "setting file mode")
	}

	if renameErr := os.Rename(tempPath, path); renameErr != nil {
		return oops.
			With("from", tempPath).
			With("to", path).
			Wrapf(renameErr, "replacing %q", path)
	}

	return nil
}
