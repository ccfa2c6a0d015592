// Package fileutil provides file system utilities.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic replaces filename with data in one step: the bytes go to a
// hidden temporary in the same directory (same filesystem, so the POSIX
// rename is atomic) and the temporary is renamed over the target. Readers
// observe either the previous complete file or the new one, never a torn
// write. The directory is fsynced afterwards so a crash cannot lose the
// rename itself, which is what checkpoint durability rests on.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", filename, err)
	}
	// No-op once the rename has claimed the temporary.
	defer os.Remove(tmp.Name())

	if err := fillAndClose(tmp, data, perm); err != nil {
		return fmt.Errorf("stage %s: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("replace %s: %w", filename, err)
	}

	return syncDir(dir)
}

func fillAndClose(f *os.File, data []byte, perm os.FileMode) error {
	_, err := f.Write(data)
	if err == nil {
		err = f.Chmod(perm)
	}
	if err == nil {
		err = f.Sync()
	}

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	return nil
}
