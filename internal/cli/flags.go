package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// stepList appends every occurrence of a flag to one shared slice, so
// interleaved --job and --subtask values keep command-line order.
type stepList struct {
	steps *[]string
}

var _ pflag.Value = (*stepList)(nil)

func (s *stepList) String() string {
	if s == nil || s.steps == nil {
		return ""
	}
	return strings.Join(*s.steps, ",")
}

func (s *stepList) Set(v string) error {
	*s.steps = append(*s.steps, v)
	return nil
}

func (s *stepList) Type() string { return "string" }

// addStepFlags registers --job and --subtask as aliases feeding steps.
func addStepFlags(fs *pflag.FlagSet, steps *[]string) {
	v := &stepList{steps: steps}
	fs.Var(v, "job", "step of the unit (repeatable, kept in order)")
	fs.Var(v, "subtask", "alias of --job")
}
