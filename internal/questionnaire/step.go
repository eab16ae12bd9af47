package questionnaire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Step names a questionnaire screen that produces one category.
type Step string

const (
	StepIdentity      Step = "identity"
	StepQualification Step = "qualification"
	StepExperience    Step = "experience"
	StepEmployment    Step = "employment"
	StepPartner       Step = "partner"
)

// Steps returns the steps in questionnaire order.
func Steps() []Step {
	return []Step{StepIdentity, StepQualification, StepExperience, StepEmployment, StepPartner}
}

func (s Step) Valid() bool {
	switch s {
	case StepIdentity, StepQualification, StepExperience, StepEmployment, StepPartner:
		return true
	}
	return false
}

// Category is the value one step produces.
type Category interface {
	Step() Step
}

func (Identity) Step() Step       { return StepIdentity }
func (Qualification) Step() Step  { return StepQualification }
func (WorkExperience) Step() Step { return StepExperience }
func (Employment) Step() Step     { return StepEmployment }
func (Partner) Step() Step        { return StepPartner }

// Get returns the answered category for step, or nil when unanswered.
func (a Answers) Get(step Step) Category {
	switch step {
	case StepIdentity:
		if a.Identity != nil {
			return *a.Identity
		}
	case StepQualification:
		if a.Qualification != nil {
			return *a.Qualification
		}
	case StepExperience:
		if a.WorkExperience != nil {
			return *a.WorkExperience
		}
	case StepEmployment:
		if a.Employment != nil {
			return *a.Employment
		}
	case StepPartner:
		if a.Partner != nil {
			return *a.Partner
		}
	}
	return nil
}

// DecodeStep decodes a YAML or JSON payload for step.
func DecodeStep(step Step, data []byte) (Category, error) {
	switch step {
	case StepIdentity:
		var v Identity
		return v, decodeStrict(data, &v)
	case StepQualification:
		var v Qualification
		return v, decodeStrict(data, &v)
	case StepExperience:
		var v WorkExperience
		return v, decodeStrict(data, &v)
	case StepEmployment:
		var v Employment
		return v, decodeStrict(data, &v)
	case StepPartner:
		var v Partner
		return v, decodeStrict(data, &v)
	}
	return nil, fmt.Errorf("questionnaire.DecodeStep: unknown step %q", step)
}

// ParseState decodes a YAML or JSON state document. An empty document
// yields the empty state.
func ParseState(data []byte) (State, error) {
	var s State
	if err := decodeStrict(data, &s); err != nil {
		return State{}, fmt.Errorf("questionnaire.ParseState: %w", err)
	}
	return s, nil
}

// decodeStrict uses the YAML decoder for both formats since JSON is valid
// YAML. Unknown keys are rejected so typos do not silently score zero.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
