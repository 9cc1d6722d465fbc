// Package yaml provides atomic YAML file I/O, document shape checks, and quarantine utilities.
package yaml

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteOptions controls AtomicWriteRaw. The zero value writes without a backup
// and accepts any well-formed YAML document.
type WriteOptions struct {
	Backup bool
	Shape  Shape
}

// defaultFileMode applies when the target does not exist yet.
const defaultFileMode os.FileMode = 0o644

// AtomicWriteRaw replaces path with content. Readers observe either the old
// file or the new one, never a partial write.
func AtomicWriteRaw(path string, content []byte, opts WriteOptions) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	// Step 1: Create temp file next to the target and write content
	tmp, err := os.CreateTemp(dir, ".buildq-tmp-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		// no-op after a successful rename
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	// CreateTemp opens 0600; the replacement keeps the target's permissions.
	mode := defaultFileMode
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Step 2: Validate written content by re-reading temp file
	written, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("read temp file for validation: %w", err)
	}
	if err := ValidateShape(written, opts.Shape); err != nil {
		return fmt.Errorf("yaml validation failed: %w", err)
	}

	// Step 3: Keep the previous content as .bak
	if opts.Backup {
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, BackupPath(path)); err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
		}
	}

	// Step 4: Atomic rename within the same directory
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	syncDir(dir)

	return nil
}

func BackupPath(path string) string {
	return path + ".bak"
}

// syncDir flushes the directory entry so the rename survives a crash.
// Some filesystems refuse fsync on directories; that is not an error here.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
