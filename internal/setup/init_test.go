package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/msageha/buildq/internal/model"
	"github.com/msageha/buildq/internal/queue"
)

func TestRun_CreatesDirectoryStructure(t *testing.T) {
	projectDir := t.TempDir()

	base, err := Run(context.Background(), projectDir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if base != filepath.Join(projectDir, ".buildq") {
		t.Errorf("base: got %q", base)
	}

	for _, d := range []string{"queue", "logs", "locks", "audit", "quarantine"} {
		info, err := os.Stat(filepath.Join(base, d))
		if err != nil {
			t.Errorf("directory %s does not exist: %v", d, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", d)
		}
	}
}

func TestRun_WritesConfig(t *testing.T) {
	base, err := Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(base, "config.yaml"))
	if err != nil {
		t.Fatalf("read config.yaml: %v", err)
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("parse config.yaml: %v", err)
	}
	got, want := cfg.WithDefaults(), model.DefaultConfig()
	if got.Queue.JobsFile != want.Queue.JobsFile || got.Queue.GroupsFile != want.Queue.GroupsFile {
		t.Errorf("queue files drifted from defaults: %+v", got.Queue)
	}
	if got.Review != want.Review {
		t.Errorf("review drifted from defaults: got %+v, want %+v", got.Review, want.Review)
	}
	if got.Commands != want.Commands {
		t.Errorf("commands drifted from defaults: got %+v, want %+v", got.Commands, want.Commands)
	}
	if got.Audit.Path != want.Audit.Path || got.Audit.MaxSizeBytes != want.Audit.MaxSizeBytes {
		t.Errorf("audit drifted from defaults: %+v", got.Audit)
	}
	if !got.Queue.BackupEnabled() || !got.Audit.IsEnabled() {
		t.Error("backup and audit should be enabled by default")
	}
}

func TestRun_WritesEmptyQueues(t *testing.T) {
	base, err := Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	jobsPath := filepath.Join(base, "queue", "jobs.yaml")
	groupsPath := filepath.Join(base, "queue", "groups.yaml")

	if data, _ := os.ReadFile(jobsPath); string(data) != "[]\n" {
		t.Errorf("jobs.yaml: got %q", data)
	}
	if data, _ := os.ReadFile(groupsPath); string(data) != "groups: []\n" {
		t.Errorf("groups.yaml: got %q", data)
	}

	jobs, err := queue.NewJobStore(jobsPath, true).Load(context.Background())
	if err != nil || len(jobs) != 0 {
		t.Errorf("jobs load: %v, %d units", err, len(jobs))
	}
	groups, err := queue.NewGroupStore(groupsPath, true).Load(context.Background())
	if err != nil || len(groups) != 0 {
		t.Errorf("groups load: %v, %d units", err, len(groups))
	}

	if _, err := os.Stat(jobsPath + ".bak"); !os.IsNotExist(err) {
		t.Errorf("fresh queue should have no backup, stat err=%v", err)
	}
}

func TestRun_AlreadyExists(t *testing.T) {
	projectDir := t.TempDir()
	if _, err := Run(context.Background(), projectDir); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	jobsPath := filepath.Join(projectDir, ".buildq", "queue", "jobs.yaml")
	if err := os.WriteFile(jobsPath, []byte("- context: build\n  description: keep me\n  createdAt: 2026-01-01T00:00:00Z\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Run(context.Background(), projectDir); err == nil {
		t.Fatal("expected error for existing .buildq")
	}

	data, _ := os.ReadFile(jobsPath)
	if len(data) == 0 || string(data) == "[]\n" {
		t.Error("second Run must not reset existing queue")
	}
}

func TestRun_ProjectDirMissing(t *testing.T) {
	if _, err := Run(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing project dir")
	}
}

func TestRun_ProjectDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(context.Background(), file); err == nil {
		t.Fatal("expected error when project dir is a file")
	}
}
