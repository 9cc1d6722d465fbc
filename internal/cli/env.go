package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/msageha/buildq/internal/events"
	"github.com/msageha/buildq/internal/lock"
	"github.com/msageha/buildq/internal/logging"
	"github.com/msageha/buildq/internal/model"
	"github.com/msageha/buildq/internal/queue"
	"github.com/msageha/buildq/internal/review"
)

const (
	EnvDir      = "BUILDQ_DIR"
	EnvLogLevel = "BUILDQ_LOG_LEVEL"
)

// Env is everything a command needs once the state directory is known.
type Env struct {
	Root   string // project root, parent of Dir
	Dir    string // .buildq state directory
	Config model.Config
	Log    *logging.Logger
	Now    func() time.Time

	audit *events.AuditLogger
}

// loadDotEnv reads .env from the working directory. Variables already set in
// the environment win.
func loadDotEnv(wd string) error {
	err := godotenv.Load(filepath.Join(wd, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// findDir walks up from wd looking for an existing .buildq directory. When
// none exists it returns wd/.buildq, which the first save creates.
func findDir(wd string) string {
	dir := wd
	for {
		candidate := filepath.Join(dir, model.DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return filepath.Join(wd, model.DirName)
		}
		dir = parent
	}
}

// resolveDir picks the state directory: --dir, then BUILDQ_DIR, then
// discovery from wd.
func resolveDir(flagDir, wd string) (string, error) {
	dir := flagDir
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		return findDir(wd), nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(wd, dir)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return "", usageErrorf("state dir %s is not a directory", dir)
	}
	return filepath.Clean(dir), nil
}

// loadConfig reads config.yaml, or config.toml when there is no YAML file,
// and overlays it on the defaults. A missing config means defaults.
func loadConfig(dir string) (model.Config, string, error) {
	yamlPath := filepath.Join(dir, "config.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		var cfg model.Config
		dec := yamlv3.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return model.Config{}, yamlPath, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
		return cfg.WithDefaults(), yamlPath, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return model.Config{}, yamlPath, fmt.Errorf("read config.yaml: %w", err)
	}

	tomlPath := filepath.Join(dir, "config.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		var cfg model.Config
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return model.Config{}, tomlPath, fmt.Errorf("parse %s: %w", tomlPath, err)
		}
		return cfg.WithDefaults(), tomlPath, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return model.Config{}, tomlPath, fmt.Errorf("read config.toml: %w", err)
	}

	return model.DefaultConfig(), "", nil
}

// statePath resolves a config path relative to the state directory.
func (e *Env) statePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.Dir, p)
}

// LogDir resolves review.log_dir relative to the project root.
func (e *Env) LogDir() string {
	if filepath.IsAbs(e.Config.Review.LogDir) {
		return e.Config.Review.LogDir
	}
	return filepath.Join(e.Root, e.Config.Review.LogDir)
}

func (e *Env) JobsPath() string   { return e.statePath(e.Config.Queue.JobsFile) }
func (e *Env) GroupsPath() string { return e.statePath(e.Config.Queue.GroupsFile) }

func (e *Env) locker(name string) lock.Locker {
	return lock.FileLocker{
		Path:    filepath.Join(e.Dir, "locks", name+".lock"),
		Timeout: time.Duration(e.Config.Queue.LockTimeoutSec) * time.Second,
		Poll:    lock.DefaultPollInterval,
	}
}

func (e *Env) JobStore() *queue.FileStore[model.Job] {
	return queue.NewJobStore(e.JobsPath(), e.Config.Queue.BackupEnabled())
}

func (e *Env) GroupStore() *queue.FileStore[model.Group] {
	return queue.NewGroupStore(e.GroupsPath(), e.Config.Queue.BackupEnabled())
}

func (e *Env) Jobs() queue.Handle[model.Job] {
	return queue.Handle[model.Job]{Store: e.JobStore(), Locker: e.locker("jobs")}
}

func (e *Env) Groups() queue.Handle[model.Group] {
	return queue.Handle[model.Group]{Store: e.GroupStore(), Locker: e.locker("groups")}
}

func (e *Env) Scanner() review.Scanner {
	return review.Scanner{
		Dir:             e.LogDir(),
		PendingPattern:  e.Config.Review.PendingPattern,
		ReviewedPattern: e.Config.Review.ReviewedPattern,
	}
}

// Audit opens the audit log on first use. It returns nil when auditing is
// disabled or the log cannot be opened; the failure is logged, not returned.
func (e *Env) Audit() *events.AuditLogger {
	if e.audit != nil || !e.Config.Audit.IsEnabled() {
		return e.audit
	}
	a, err := events.NewAuditLogger(e.statePath(e.Config.Audit.Path), e.Config.Audit.MaxSizeBytes)
	if err != nil {
		e.Log.Warnf("audit disabled: %v", err)
		return nil
	}
	e.audit = a
	return a
}

// Recorder returns a queue.Recorder that opens the audit log only when the
// first mutation is recorded, so failed or no-op commands leave no trace.
func (e *Env) Recorder() queue.Recorder {
	if !e.Config.Audit.IsEnabled() {
		return nil
	}
	return auditRecorder{env: e}
}

type auditRecorder struct {
	env *Env
}

func (r auditRecorder) Record(ctx context.Context, ev queue.Event) {
	a := r.env.Audit()
	if a == nil {
		return
	}
	events.QueueRecorder{Audit: a, Log: r.env.Log.With("audit")}.Record(ctx, ev)
}

func (e *Env) Service() *queue.Service {
	return &queue.Service{
		Jobs:     e.Jobs(),
		Groups:   e.Groups(),
		Now:      e.Now,
		Recorder: e.Recorder(),
	}
}

func (e *Env) Close() error {
	if e.audit == nil {
		return nil
	}
	err := e.audit.Close()
	e.audit = nil
	return err
}
