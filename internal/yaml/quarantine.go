package yaml

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const QuarantineDir = "quarantine"

// Quarantine moves a corrupted file into <baseDir>/quarantine and returns its
// new location.
func Quarantine(baseDir, filePath string, now time.Time) (string, error) {
	quarantineDir := filepath.Join(baseDir, QuarantineDir)
	if err := os.MkdirAll(quarantineDir, 0755); err != nil {
		return "", fmt.Errorf("create quarantine dir: %w", err)
	}

	baseName := filepath.Base(filePath)
	timestamp := now.Format("20060102T150405")
	quarantineName := fmt.Sprintf("%s.%s.corrupt", baseName, timestamp)
	quarantinePath := filepath.Join(quarantineDir, quarantineName)

	if err := os.Rename(filePath, quarantinePath); err != nil {
		return "", fmt.Errorf("move to quarantine: %w", err)
	}
	return quarantinePath, nil
}

// RestoreFromBackup replaces filePath with its .bak copy, provided the backup
// parses with the expected shape.
func RestoreFromBackup(filePath string, shape Shape) error {
	bakPath := BackupPath(filePath)
	content, err := os.ReadFile(bakPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("no backup file: %s", bakPath)
	}
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if err := ValidateShape(content, shape); err != nil {
		return fmt.Errorf("backup is also corrupted: %w", err)
	}

	if err := AtomicWriteRaw(filePath, content, WriteOptions{Shape: shape}); err != nil {
		return fmt.Errorf("restore from backup: %w", err)
	}
	return nil
}

// Recover quarantines a corrupted file and restores it from backup. When no
// usable backup exists the quarantined copy is left for manual recovery and
// the original path stays absent.
func Recover(baseDir, filePath string, shape Shape, now time.Time) (quarantinePath string, err error) {
	quarantinePath, err = Quarantine(baseDir, filePath, now)
	if err != nil {
		return "", fmt.Errorf("quarantine failed: %w", err)
	}
	if err := RestoreFromBackup(filePath, shape); err != nil {
		return quarantinePath, err
	}
	return quarantinePath, nil
}
