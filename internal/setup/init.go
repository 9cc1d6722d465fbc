// Package setup creates the .buildq state directory for a project.
package setup

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/msageha/buildq/internal/model"
	"github.com/msageha/buildq/internal/queue"
	atomicyaml "github.com/msageha/buildq/internal/yaml"
	"github.com/msageha/buildq/templates"
)

// Dirs are created under .buildq/.
var Dirs = []string{
	"queue",
	"logs",
	"locks",
	"audit",
	atomicyaml.QuarantineDir,
}

// Run initializes .buildq/ inside projectDir and returns its absolute path.
// It refuses to touch an existing state directory.
func Run(ctx context.Context, projectDir string) (string, error) {
	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return "", fmt.Errorf("project dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project dir %s is not a directory", absDir)
	}

	base := filepath.Join(absDir, model.DirName)
	if _, err := os.Stat(base); err == nil {
		return "", fmt.Errorf("%s already exists", base)
	}

	for _, d := range Dirs {
		if err := os.MkdirAll(filepath.Join(base, d), 0755); err != nil {
			return "", fmt.Errorf("create directory %s: %w", d, err)
		}
	}

	cfg, err := writeConfig(filepath.Join(base, "config.yaml"))
	if err != nil {
		return "", fmt.Errorf("write config.yaml: %w", err)
	}

	backup := cfg.Queue.BackupEnabled()
	if err := queue.NewJobStore(filepath.Join(base, cfg.Queue.JobsFile), backup).Save(ctx, nil); err != nil {
		return "", fmt.Errorf("create jobs queue: %w", err)
	}
	if err := queue.NewGroupStore(filepath.Join(base, cfg.Queue.GroupsFile), backup).Save(ctx, nil); err != nil {
		return "", fmt.Errorf("create groups queue: %w", err)
	}

	return base, nil
}

// writeConfig copies the embedded default config, keeping its comments, after
// checking that it decodes into model.Config.
func writeConfig(path string) (model.Config, error) {
	data, err := fs.ReadFile(templates.FS, "config.yaml")
	if err != nil {
		return model.Config{}, fmt.Errorf("read config template: %w", err)
	}

	var cfg model.Config
	dec := yamlv3.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return model.Config{}, fmt.Errorf("parse config template: %w", err)
	}

	if err := atomicyaml.AtomicWriteRaw(path, data, atomicyaml.WriteOptions{Shape: atomicyaml.ShapeMapping}); err != nil {
		return model.Config{}, err
	}
	return cfg.WithDefaults(), nil
}
