package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/msageha/buildq/internal/queue"
	"github.com/msageha/buildq/internal/setup"
	"github.com/msageha/buildq/internal/status"
	atomicyaml "github.com/msageha/buildq/internal/yaml"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create .buildq/ with default config and empty queues",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir := "."
			if len(args) == 1 {
				projectDir = args[0]
			} else if wd, err := a.getwd(); err == nil {
				projectDir = wd
			}
			base, err := setup.Run(cmd.Context(), projectDir)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", base)
			return nil
		},
	}
}

// isTerminal reports whether w is a terminal, for styled output.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) newStatusCmd() *cobra.Command {
	var jsonOutput, watch bool
	cmd := &cobra.Command{
		Use:   "status [--json] [--watch]",
		Short: "Show queue depths, queue heads, and unreviewed logs",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			scanner := env.Scanner()
			src := status.Sources{
				Dir:        env.Dir,
				Jobs:       env.JobStore(),
				JobsPath:   env.JobsPath(),
				Groups:     env.GroupStore(),
				GroupsPath: env.GroupsPath(),
				Logs:       scanner,
				LogDir:     scanner.Dir,
			}
			out := cmd.OutOrStdout()
			styled := !jsonOutput && isTerminal(out)

			render := func(ctx context.Context) error {
				report, err := status.Collect(ctx, src)
				if err != nil {
					return err
				}
				if jsonOutput {
					return status.WriteJSON(out, report)
				}
				if watch && styled {
					fmt.Fprint(out, "\x1b[H\x1b[2J")
				}
				return status.Print(out, report, styled)
			}

			if !watch {
				return render(cmd.Context())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			dirs := []string{
				filepath.Dir(env.JobsPath()),
				filepath.Dir(env.GroupsPath()),
				scanner.Dir,
			}
			return status.Watch(ctx, uniqueDirs(dirs), status.DefaultDebounce, env.Log, func() error {
				return render(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-print whenever the queues or logs change")
	return cmd
}

func uniqueDirs(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	var out []string
	for _, d := range dirs {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func parseQueueName(name string) (string, error) {
	switch name {
	case "jobs", "job", "simple":
		return "jobs", nil
	case "groups", "group", "nested":
		return "groups", nil
	default:
		return "", usageErrorf("unknown queue %q, must be jobs|groups", name)
	}
}

func (a *app) newPeekCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "peek [jobs|groups]",
		Short: "Print a queue without changing it",
		Args:  maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "jobs"
			if len(args) == 1 {
				var err error
				if name, err = parseQueueName(args[0]); err != nil {
					return err
				}
			}

			env, err := a.load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if name == "jobs" {
				return peek(cmd, env.JobStore(), jsonOutput)
			}
			return peek(cmd, env.GroupStore(), jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print as JSON instead of YAML")
	return cmd
}

func peek[T any](cmd *cobra.Command, store queue.Store[T], jsonOutput bool) error {
	units, err := store.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("peek: %w", err)
	}
	if units == nil {
		units = []T{}
	}
	return writeUnits(cmd.OutOrStdout(), units, jsonOutput)
}

func writeUnits(w io.Writer, units any, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(units)
	}
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(units); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) newRepairCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "repair --queue jobs|groups",
		Short: "Quarantine a malformed queue file and restore its backup",
		Long: "Move a malformed queue file to quarantine/ and restore the last good\n" +
			"backup (<file>.bak). Without a usable backup the command fails and the\n" +
			"quarantined copy is left for manual recovery. A healthy queue is left alone.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("queue") {
				return usageErrorf("--queue is required")
			}
			queueName, err := parseQueueName(name)
			if err != nil {
				return err
			}

			env, err := a.load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			path, shape := env.JobsPath(), env.JobStore().Shape()
			check := func(ctx context.Context) error { _, err := env.JobStore().Load(ctx); return err }
			if queueName == "groups" {
				path, shape = env.GroupsPath(), env.GroupStore().Shape()
				check = func(ctx context.Context) error { _, err := env.GroupStore().Load(ctx); return err }
			}

			release, err := env.locker(queueName).Acquire(cmd.Context())
			if err != nil {
				return fmt.Errorf("lock %s queue: %w", queueName, err)
			}
			defer release()

			out := cmd.OutOrStdout()
			err = check(cmd.Context())
			if err == nil {
				fmt.Fprintf(out, "%s queue is healthy, nothing to repair\n", queueName)
				return nil
			}
			if !errors.Is(err, queue.ErrMalformed) {
				return fmt.Errorf("repair %s: %w", queueName, err)
			}
			env.Log.Warnf("%v", err)

			quarantined, recoverErr := atomicyaml.Recover(env.Dir, path, shape, env.Now())
			if quarantined != "" {
				fmt.Fprintf(out, "quarantined %s\n", quarantined)
			}
			if recoverErr != nil {
				return fmt.Errorf("repair %s: %w", queueName, recoverErr)
			}
			if err := check(cmd.Context()); err != nil {
				return fmt.Errorf("repair %s: restored backup does not load: %w", queueName, err)
			}

			if audit := env.Audit(); audit != nil {
				if err := audit.Log("repaired", map[string]any{
					"queue":       queueName,
					"path":        path,
					"quarantined": quarantined,
				}); err != nil {
					env.Log.Warnf("audit repaired: %v", err)
				}
			}
			fmt.Fprintf(out, "restored %s from %s\n", path, atomicyaml.BackupPath(path))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "queue", "", "queue to repair: jobs|groups (required)")
	return cmd
}
