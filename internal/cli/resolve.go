package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msageha/buildq/internal/resolver"
)

func (a *app) newResolveNextCmd() *cobra.Command {
	var lastStrategy, format string
	cmd := &cobra.Command{
		Use:   "resolve-next [--last-strategy <context>]",
		Short: "Print the next action for the driver loop",
		Long: "Decide what the driver should do next, in priority order:\n" +
			"  1. review unreviewed logs (the queue is not touched)\n" +
			"  2. stop at a context boundary when the head's context differs from\n" +
			"     --last-strategy (the head stays queued)\n" +
			"  3. dequeue and execute the head job, or print " + resolver.NoJobsMarker + "\n" +
			"     when the queue is empty",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := resolver.ParseFormat(format)
			if err != nil {
				return &UsageError{Err: err}
			}

			env, err := a.load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			scanner := env.Scanner()
			if err := scanner.Validate(); err != nil {
				return fmt.Errorf("review config: %w", err)
			}

			r := &resolver.Resolver{
				Jobs:            env.Jobs(),
				Logs:            scanner,
				LogDir:          scanner.Dir,
				ReviewedPattern: env.Config.Review.ReviewedPattern,
				Commands:        env.Config.Commands,
				Recorder:        env.Recorder(),
				Log:             env.Log,
			}
			ins, err := r.Resolve(cmd.Context(), lastStrategy)
			if err != nil {
				return fmt.Errorf("resolve-next: %w", err)
			}
			env.Log.Debugf("action=%s", ins.Action())
			return resolver.Render(cmd.OutOrStdout(), ins, f)
		},
	}
	cmd.Flags().StringVar(&lastStrategy, "last-strategy", "", "context of the job this session last ran")
	cmd.Flags().StringVar(&format, "format", string(resolver.FormatText), "output format: text|json")
	return cmd
}
