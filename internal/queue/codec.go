package queue

import (
	"bytes"
	"fmt"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/msageha/buildq/internal/model"
	atomicyaml "github.com/msageha/buildq/internal/yaml"
)

// Codec converts a queue to and from its file representation.
type Codec[T any] interface {
	Shape() atomicyaml.Shape
	Decode(content []byte) ([]T, error)
	Encode(units []T) ([]byte, error)
}

// JobCodec reads and writes the simple queue: a bare sequence of jobs.
type JobCodec struct{}

func (JobCodec) Shape() atomicyaml.Shape { return atomicyaml.ShapeSequence }

func (c JobCodec) Decode(content []byte) ([]model.Job, error) {
	if err := atomicyaml.ValidateShape(content, c.Shape()); err != nil {
		return nil, err
	}
	var jobs []model.Job
	if err := decodeStrict(content, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (JobCodec) Encode(jobs []model.Job) ([]byte, error) {
	if jobs == nil {
		jobs = []model.Job{}
	}
	return yamlv3.Marshal(jobs)
}

// GroupCodec reads and writes the nested queue: a mapping with a single
// "groups" sequence.
type GroupCodec struct{}

func (GroupCodec) Shape() atomicyaml.Shape { return atomicyaml.ShapeMapping }

func (c GroupCodec) Decode(content []byte) ([]model.Group, error) {
	if err := atomicyaml.ValidateShape(content, c.Shape()); err != nil {
		return nil, err
	}
	var doc groupDocument
	if err := decodeStrict(content, &doc); err != nil {
		return nil, err
	}
	// presence, not length: "groups: []" next to a tasks list is still two lists
	var keys map[string]any
	if err := yamlv3.Unmarshal(content, &keys); err != nil {
		return nil, err
	}
	_, hasGroups := keys["groups"]
	_, hasTasks := keys["tasks"]
	if hasGroups && hasTasks {
		return nil, fmt.Errorf("both groups and tasks are set")
	}
	if hasTasks {
		return doc.Tasks, nil
	}
	return doc.Groups, nil
}

// groupDocument is the read side of model.GroupQueue. Older files name the
// list "tasks"; it is read but never written.
type groupDocument struct {
	Groups []model.Group `yaml:"groups"`
	Tasks  []model.Group `yaml:"tasks"`
}

func (GroupCodec) Encode(groups []model.Group) ([]byte, error) {
	if groups == nil {
		groups = []model.Group{}
	}
	return yamlv3.Marshal(model.GroupQueue{Groups: groups})
}

// decodeStrict rejects unknown keys so a misspelled field never decodes into
// a unit with an empty strategy.
func decodeStrict(content []byte, out any) error {
	dec := yamlv3.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}
