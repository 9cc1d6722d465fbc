package resolver

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/msageha/buildq/internal/model"
	"github.com/msageha/buildq/templates"
)

// Format selects how an instruction is printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid format %q, must be text|json", s)
	}
}

var instructionTemplates = template.Must(template.ParseFS(templates.FS, "instructions/*.tmpl"))

func Render(w io.Writer, ins Instruction, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toJSON(ins))
	}
	return renderText(w, ins)
}

func renderText(w io.Writer, ins Instruction) error {
	var name string
	var data any
	switch v := ins.(type) {
	case ReviewLogs:
		name, data = "review_logs.tmpl", v
	case SwitchContext:
		name, data = "switch_context.tmpl", v
	case Execute:
		name, data = "execute.tmpl", v
	case NoJobs:
		name, data = "no_jobs.tmpl", struct{ Marker string }{NoJobsMarker}
	default:
		return fmt.Errorf("unknown instruction %T", ins)
	}
	return instructionTemplates.ExecuteTemplate(w, name, data)
}

type jsonInstruction struct {
	Action          Action                `json:"action"`
	LogDir          string                `json:"log_dir,omitempty"`
	Logs            []string              `json:"logs,omitempty"`
	ReviewedPattern string                `json:"reviewed_pattern,omitempty"`
	Previous        string                `json:"previous_strategy,omitempty"`
	Next            string                `json:"next_strategy,omitempty"`
	Pending         *int                  `json:"pending,omitempty"`
	Job             *model.Job            `json:"job,omitempty"`
	Remaining       *int                  `json:"remaining,omitempty"`
	Commands        *model.CommandsConfig `json:"commands,omitempty"`
	Marker          string                `json:"marker,omitempty"`
}

func toJSON(ins Instruction) jsonInstruction {
	out := jsonInstruction{Action: ins.Action()}
	switch v := ins.(type) {
	case ReviewLogs:
		out.LogDir = v.Dir
		out.Logs = v.Logs
		out.ReviewedPattern = v.ReviewedPattern
	case SwitchContext:
		out.Previous = v.Previous
		out.Next = v.Next
		out.Pending = &v.Pending
	case Execute:
		out.Job = &v.Job
		out.Remaining = &v.Remaining
		out.Commands = &v.Commands
	case NoJobs:
		out.Marker = NoJobsMarker
	}
	return out
}
