package model

import "time"

// Kind names a work unit flavor. Each flavor lives in its own queue file.
type Kind string

const (
	KindJob   Kind = "job"
	KindGroup Kind = "group"
)

// WorkUnit is one dequeue-able entry. It is implemented only by Job and Group;
// consumers switch on the concrete type.
type WorkUnit interface {
	UnitKind() Kind
	UnitID() string
	UnitStrategy() string
	UnitCreatedAt() time.Time
	isWorkUnit()
}

// Job is a single atomic step in the simple queue. Strategy is persisted
// under "context": it names the instructions the agent loads first.
type Job struct {
	ID          string    `yaml:"id,omitempty" json:"id,omitempty"`
	Strategy    string    `yaml:"context" json:"context"`
	Description string    `yaml:"description" json:"description"`
	CreatedAt   time.Time `yaml:"createdAt" json:"createdAt"`
}

func (Job) UnitKind() Kind             { return KindJob }
func (j Job) UnitID() string           { return j.ID }
func (j Job) UnitStrategy() string     { return j.Strategy }
func (j Job) UnitCreatedAt() time.Time { return j.CreatedAt }
func (Job) isWorkUnit()                {}

// Group is a nested unit. The queue treats it as one opaque entry; the agent
// walks Steps in order itself.
type Group struct {
	ID        string    `yaml:"id,omitempty" json:"id,omitempty"`
	Strategy  string    `yaml:"context" json:"context"`
	Steps     []string  `yaml:"steps" json:"steps"`
	CreatedAt time.Time `yaml:"createdAt" json:"createdAt"`
}

func (Group) UnitKind() Kind             { return KindGroup }
func (g Group) UnitID() string           { return g.ID }
func (g Group) UnitStrategy() string     { return g.Strategy }
func (g Group) UnitCreatedAt() time.Time { return g.CreatedAt }
func (Group) isWorkUnit()                {}

// GroupQueue is the on-disk document of the nested queue. The simple queue has
// no wrapper: its file is a bare sequence of Job.
type GroupQueue struct {
	Groups []Group `yaml:"groups"`
}
