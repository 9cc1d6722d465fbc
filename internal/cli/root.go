// Package cli wires the buildq commands: the queue operations, the
// next-action resolver, and the maintenance commands around them.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/msageha/buildq/internal/logging"
	"github.com/msageha/buildq/internal/queue"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

type app struct {
	dir      string
	logLevel string

	getwd func() (string, error)
	now   func() time.Time
}

func newApp() *app {
	return &app{getwd: os.Getwd, now: time.Now}
}

func (a *app) bindGlobalFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&a.dir, "dir", "", "state directory (default: nearest .buildq above the working directory, or $"+EnvDir+")")
	pf.StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error (default: config logging.level, or $"+EnvLogLevel+")")
}

// load resolves the state directory, config, and logger for one command run.
func (a *app) load(cmd *cobra.Command) (*Env, error) {
	wd, err := a.getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	if err := loadDotEnv(wd); err != nil {
		return nil, err
	}
	dir, err := resolveDir(a.dir, wd)
	if err != nil {
		return nil, err
	}
	cfg, cfgPath, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if v := os.Getenv(EnvLogLevel); v != "" {
		level = v
	}
	if a.logLevel != "" {
		level = a.logLevel
	}
	log := logging.New(cmd.ErrOrStderr(), logging.ParseLogLevel(level)).With(cmd.Name())
	if cfgPath != "" {
		log.Debugf("config=%s dir=%s", cfgPath, dir)
	} else {
		log.Debugf("config=defaults dir=%s", dir)
	}

	return &Env{
		Root:   filepath.Dir(dir),
		Dir:    dir,
		Config: cfg,
		Log:    log,
		Now:    a.now,
	}, nil
}

func flagErrorFunc(_ *cobra.Command, err error) error {
	return &UsageError{Err: err}
}

func (a *app) configure(cmd *cobra.Command) *cobra.Command {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(flagErrorFunc)
	a.bindGlobalFlags(cmd)
	return cmd
}

// operations are the commands that also ship as standalone binaries.
func (a *app) operations() map[string]func() *cobra.Command {
	return map[string]func() *cobra.Command{
		"enqueue-front-simple": func() *cobra.Command { return a.newEnqueueSimpleCmd("enqueue-front-simple", queue.Front) },
		"enqueue-back-simple":  func() *cobra.Command { return a.newEnqueueSimpleCmd("enqueue-back-simple", queue.Back) },
		"enqueue-front-nested": func() *cobra.Command { return a.newEnqueueNestedCmd("enqueue-front-nested", queue.Front) },
		"enqueue-back-nested":  func() *cobra.Command { return a.newEnqueueNestedCmd("enqueue-back-nested", queue.Back) },
		"complete-nested":      a.newCompleteNestedCmd,
		"resolve-next":         a.newResolveNextCmd,
	}
}

// OperationNames lists the standalone operations, sorted.
func OperationNames() []string {
	ops := newApp().operations()
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRootCmd creates the buildq command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buildq",
		Short: "File-backed work queues for agent build loops",
		Long: "buildq keeps two persistent queues of agent work units (simple jobs and\n" +
			"nested groups of steps) and tells a driver loop what to do next.",
		Version: Version,
	}
	cmd.SetVersionTemplate("buildq {{.Version}}\n")
	a.configure(cmd)

	for _, name := range OperationNames() {
		cmd.AddCommand(a.operations()[name]())
	}
	cmd.AddCommand(
		a.newInitCmd(),
		a.newStatusCmd(),
		a.newPeekCmd(),
		a.newRepairCmd(),
		a.newVersionCmd(),
	)
	return cmd
}

// NewOperationCmd returns one operation as a root command, for the
// per-operation binaries.
func NewOperationCmd(name string) (*cobra.Command, error) {
	a := newApp()
	build, ok := a.operations()[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q (want one of %s)", name, strings.Join(OperationNames(), ", "))
	}
	cmd := build()
	cmd.Version = Version
	cmd.SetVersionTemplate(name + " {{.Version}}\n")
	return a.configure(cmd), nil
}

// Execute runs cmd and returns the exit code, printing the error if any.
func Execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
	code := ExitCode(err)
	if code == ExitUsage {
		fmt.Fprintf(cmd.ErrOrStderr(), "run '%s --help' for usage\n", cmd.CommandPath())
	}
	return code
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the buildq version",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "buildq %s\n", Version)
			return nil
		},
	}
}

// noArgs is cobra.NoArgs reported as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &UsageError{Err: err}
	}
	return nil
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}
