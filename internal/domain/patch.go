package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Optional distinguishes a JSON key that was omitted, explicitly null, or
// carried a value. UnmarshalJSON only runs for keys present in the payload.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// JobPatch is a sparse update. Identity, ownership and timestamps are not
// patchable and therefore have no field here.
type JobPatch struct {
	Title            Optional[string]          `json:"title"`
	Description      Optional[string]          `json:"description"`
	Responsibilities Optional[string]          `json:"responsibilities"`
	JobType          Optional[JobType]         `json:"jobType"`
	ExperienceLevel  Optional[ExperienceLevel] `json:"experienceLevel"`
	MinSalary        Optional[int]             `json:"minSalary"`
	MaxSalary        Optional[int]             `json:"maxSalary"`
	RequiredSkills   Optional[[]string]        `json:"requiredSkills"`
	Status           Optional[JobStatus]       `json:"status"`
}

// Empty reports whether no field is present.
func (p JobPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Responsibilities.Set &&
		!p.JobType.Set && !p.ExperienceLevel.Set && !p.MinSalary.Set &&
		!p.MaxSalary.Set && !p.RequiredSkills.Set && !p.Status.Set
}

// FieldError names the patch field that cannot be applied.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ApplyTo merges the patch onto a copy of base and returns the merged
// record. Required fields reject explicit null; optional fields are cleared
// by it. The result still has to be validated by the caller.
func (p JobPatch) ApplyTo(base *Job) (*Job, error) {
	out := base.Clone()

	if p.Title.Set {
		if p.Title.Null {
			return nil, &FieldError{Field: "title", Reason: "cannot be null"}
		}
		out.Title = p.Title.Value
	}
	if p.Description.Set {
		if p.Description.Null {
			return nil, &FieldError{Field: "description", Reason: "cannot be null"}
		}
		out.Description = p.Description.Value
	}
	if p.Responsibilities.Set {
		if p.Responsibilities.Null {
			out.Responsibilities = nil
		} else {
			v := p.Responsibilities.Value
			out.Responsibilities = &v
		}
	}
	if p.JobType.Set {
		if p.JobType.Null {
			return nil, &FieldError{Field: "jobType", Reason: "cannot be null"}
		}
		out.JobType = p.JobType.Value
	}
	if p.ExperienceLevel.Set {
		if p.ExperienceLevel.Null {
			return nil, &FieldError{Field: "experienceLevel", Reason: "cannot be null"}
		}
		out.ExperienceLevel = p.ExperienceLevel.Value
	}
	if p.MinSalary.Set {
		if p.MinSalary.Null {
			out.MinSalary = nil
		} else {
			v := p.MinSalary.Value
			out.MinSalary = &v
		}
	}
	if p.MaxSalary.Set {
		if p.MaxSalary.Null {
			out.MaxSalary = nil
		} else {
			v := p.MaxSalary.Value
			out.MaxSalary = &v
		}
	}
	if p.RequiredSkills.Set {
		out.RequiredSkills = append([]string{}, p.RequiredSkills.Value...)
	}
	if p.Status.Set {
		if p.Status.Null {
			return nil, &FieldError{Field: "status", Reason: "cannot be null"}
		}
		out.Status = p.Status.Value
	}
	return out, nil
}
