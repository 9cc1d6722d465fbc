package resolver

import "github.com/msageha/buildq/internal/model"

// Action identifies which outcome the resolver chose.
type Action string

const (
	ActionReviewLogs    Action = "review_logs"
	ActionSwitchContext Action = "switch_context"
	ActionExecute       Action = "execute"
	ActionNoJobs        Action = "no_jobs"
)

// NoJobsMarker is the line a driver matches to stop its loop.
const NoJobsMarker = "NO_JOBS_REMAINING"

// Instruction is one of ReviewLogs, SwitchContext, Execute, or NoJobs.
type Instruction interface {
	Action() Action
	isInstruction()
}

// ReviewLogs asks the agent to process unreviewed logs before any new work.
type ReviewLogs struct {
	Dir             string
	Logs            []string
	ReviewedPattern string
}

// SwitchContext asks the agent to stop so the driver can commit and restart
// with the next unit's strategy. The head unit stays queued.
type SwitchContext struct {
	Previous string
	Next     string
	Pending  int
}

// Execute carries the dequeued job.
type Execute struct {
	Job       model.Job
	Remaining int
	Commands  model.CommandsConfig
}

// NoJobs signals the queue is drained.
type NoJobs struct{}

func (ReviewLogs) Action() Action    { return ActionReviewLogs }
func (SwitchContext) Action() Action { return ActionSwitchContext }
func (Execute) Action() Action       { return ActionExecute }
func (NoJobs) Action() Action        { return ActionNoJobs }

func (ReviewLogs) isInstruction()    {}
func (SwitchContext) isInstruction() {}
func (Execute) isInstruction()       {}
func (NoJobs) isInstruction()        {}
