package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/msageha/buildq/internal/model"
	"github.com/msageha/buildq/internal/queue"
)

func (a *app) newEnqueueSimpleCmd(name string, end queue.End) *cobra.Command {
	var strategy, description string
	cmd := &cobra.Command{
		Use:   name + " --strategy <context> --description <text>",
		Short: fmt.Sprintf("Insert a job at the %s of the jobs queue", end),
		Long:  fmt.Sprintf("Insert a job at the %s of the jobs queue.", end) + frontNote(end),
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("strategy") {
				return usageErrorf("--strategy is required")
			}
			if !cmd.Flags().Changed("description") {
				return usageErrorf("--description is required")
			}

			env, err := a.load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.Service().EnqueueJob(cmd.Context(), end, strategy, description)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			env.Log.Debugf("enqueued id=%s end=%s length=%d", res.Unit.ID, end, res.Length)
			printEnqueued(cmd.OutOrStdout(), res.Unit, end, res.Length)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "context the job runs under (required)")
	cmd.Flags().StringVar(&description, "description", "", "what the job does (required)")
	return cmd
}

func (a *app) newEnqueueNestedCmd(name string, end queue.End) *cobra.Command {
	var strategy string
	var steps []string
	trailing := true
	cmd := &cobra.Command{
		Use:   name + " --strategy <context> --job <step> [--job <step>...]",
		Short: fmt.Sprintf("Insert a group of steps at the %s of the groups queue", end),
		Long: fmt.Sprintf("Insert a group at the %s of the groups queue. Steps are kept in the\n", end) +
			"order given; --job and --subtask may be mixed." + frontNote(end),
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("strategy") {
				return usageErrorf("--strategy is required")
			}
			if len(steps) == 0 {
				return usageErrorf("at least one --job or --subtask is required")
			}

			at := end
			if cmd.Flags().Lookup("trailing") != nil && !trailing {
				at = queue.Front
			}

			env, err := a.load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.Service().EnqueueGroup(cmd.Context(), at, strategy, steps)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			env.Log.Debugf("enqueued id=%s end=%s length=%d", res.Unit.ID, at, res.Length)
			printEnqueued(cmd.OutOrStdout(), res.Unit, at, res.Length)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "context the group runs under (required)")
	addStepFlags(cmd.Flags(), &steps)
	if end == queue.Back {
		cmd.Flags().BoolVar(&trailing, "trailing", true, "insert at the tail; --trailing=false inserts at the head")
	}
	return cmd
}

func frontNote(end queue.End) string {
	if end != queue.Front {
		return ""
	}
	return "\n\nRepeated front inserts run last-in-first-out: to run A then B, insert B\nfirst, then A."
}

func (a *app) newCompleteNestedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete-nested",
		Short: "Remove the head of the groups queue after it succeeded",
		Long: "Remove the head of the groups queue. The caller vouches that its steps\n" +
			"ran; nothing is checked. An empty queue is a no-op.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := a.load(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			done, remaining, err := env.Service().CompleteGroup(cmd.Context())
			if err != nil {
				return fmt.Errorf("complete-nested: %w", err)
			}
			out := cmd.OutOrStdout()
			if done == nil {
				fmt.Fprintln(out, "nothing to complete")
				return nil
			}
			fmt.Fprintf(out, "completed group %s (%d remaining)\n", unitLabel(*done), remaining)
			printUnit(out, *done)
			return nil
		},
	}
}

func unitLabel(u model.WorkUnit) string {
	if u.UnitID() == "" {
		return "(no id)"
	}
	return u.UnitID()
}

func printEnqueued(w io.Writer, u model.WorkUnit, end queue.End, length int) {
	fmt.Fprintf(w, "enqueued %s %s at %s (queue length %d)\n", u.UnitKind(), unitLabel(u), end, length)
	printUnit(w, u)
}

func printUnit(w io.Writer, u model.WorkUnit) {
	fmt.Fprintf(w, "  context: %s\n", u.UnitStrategy())
	switch v := u.(type) {
	case model.Job:
		fmt.Fprintf(w, "  description: %s\n", v.Description)
	case model.Group:
		fmt.Fprintln(w, "  steps:")
		for i, step := range v.Steps {
			fmt.Fprintf(w, "    %d. %s\n", i+1, step)
		}
	}
}
