// Package model defines the work units, queue documents, and configuration of buildq.
package model

type Config struct {
	Queue    QueueConfig    `yaml:"queue" toml:"queue"`
	Review   ReviewConfig   `yaml:"review" toml:"review"`
	Audit    AuditConfig    `yaml:"audit" toml:"audit"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Commands CommandsConfig `yaml:"commands" toml:"commands"`
}

type QueueConfig struct {
	JobsFile       string `yaml:"jobs_file" toml:"jobs_file"`     // relative to .buildq/
	GroupsFile     string `yaml:"groups_file" toml:"groups_file"` // relative to .buildq/
	LockTimeoutSec int    `yaml:"lock_timeout_sec" toml:"lock_timeout_sec"`
	KeepBackup     *bool  `yaml:"keep_backup,omitempty" toml:"keep_backup,omitempty"`
}

type ReviewConfig struct {
	LogDir          string `yaml:"log_dir" toml:"log_dir"` // relative to the project root
	PendingPattern  string `yaml:"pending_pattern" toml:"pending_pattern"`
	ReviewedPattern string `yaml:"reviewed_pattern" toml:"reviewed_pattern"`
}

type AuditConfig struct {
	Enabled      *bool  `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Path         string `yaml:"path" toml:"path"` // relative to .buildq/
	MaxSizeBytes int64  `yaml:"max_size_bytes" toml:"max_size_bytes"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// CommandsConfig holds the command forms printed in execute instructions so
// the agent can queue follow-up work.
type CommandsConfig struct {
	EnqueueFront string `yaml:"enqueue_front" toml:"enqueue_front" json:"enqueue_front"`
	EnqueueBack  string `yaml:"enqueue_back" toml:"enqueue_back" json:"enqueue_back"`
}

// DirName is the state directory created at the project root.
const DirName = ".buildq"

const (
	DefaultJobsFile        = "queue/jobs.yaml"
	DefaultGroupsFile      = "queue/groups.yaml"
	DefaultLockTimeoutSec  = 10
	DefaultLogDir          = ".buildq/logs"
	DefaultPendingPattern  = "*.log"
	DefaultReviewedPattern = "*.reviewed.log"
	DefaultAuditPath       = "audit/queue.jsonl"
	DefaultAuditMaxSize    = 10 * 1024 * 1024
	DefaultLogLevel        = "info"
	DefaultEnqueueFront    = "enqueue-front-simple"
	DefaultEnqueueBack     = "enqueue-back-simple"
)

func DefaultConfig() Config {
	return Config{
		Queue: QueueConfig{
			JobsFile:       DefaultJobsFile,
			GroupsFile:     DefaultGroupsFile,
			LockTimeoutSec: DefaultLockTimeoutSec,
		},
		Review: ReviewConfig{
			LogDir:          DefaultLogDir,
			PendingPattern:  DefaultPendingPattern,
			ReviewedPattern: DefaultReviewedPattern,
		},
		Audit: AuditConfig{
			Path:         DefaultAuditPath,
			MaxSizeBytes: DefaultAuditMaxSize,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
		Commands: CommandsConfig{
			EnqueueFront: DefaultEnqueueFront,
			EnqueueBack:  DefaultEnqueueBack,
		},
	}
}

// WithDefaults fills every zero-valued field from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Queue.JobsFile == "" {
		c.Queue.JobsFile = d.Queue.JobsFile
	}
	if c.Queue.GroupsFile == "" {
		c.Queue.GroupsFile = d.Queue.GroupsFile
	}
	if c.Queue.LockTimeoutSec <= 0 {
		c.Queue.LockTimeoutSec = d.Queue.LockTimeoutSec
	}
	if c.Review.LogDir == "" {
		c.Review.LogDir = d.Review.LogDir
	}
	if c.Review.PendingPattern == "" {
		c.Review.PendingPattern = d.Review.PendingPattern
	}
	if c.Review.ReviewedPattern == "" {
		c.Review.ReviewedPattern = d.Review.ReviewedPattern
	}
	if c.Audit.Path == "" {
		c.Audit.Path = d.Audit.Path
	}
	if c.Audit.MaxSizeBytes <= 0 {
		c.Audit.MaxSizeBytes = d.Audit.MaxSizeBytes
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Commands.EnqueueFront == "" {
		c.Commands.EnqueueFront = d.Commands.EnqueueFront
	}
	if c.Commands.EnqueueBack == "" {
		c.Commands.EnqueueBack = d.Commands.EnqueueBack
	}
	return c
}

func (q QueueConfig) BackupEnabled() bool {
	return q.KeepBackup == nil || *q.KeepBackup
}

func (a AuditConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}
