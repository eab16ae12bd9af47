package questionnaire

import "slices"

// State is an immutable snapshot of the questionnaire. Every transition
// returns a new State; the receiver is never modified.
type State struct {
	Answers `yaml:",inline"`
	IsFinal bool      `json:"isFinal" yaml:"isFinal"`
	History []Answers `json:"history" yaml:"history"`
}

// Empty returns the initial state: nothing answered, not final, no history.
func Empty() State {
	return State{}
}

func (s State) clone() State {
	n := State{
		Answers: s.Answers.Clone(),
		IsFinal: s.IsFinal,
	}
	if s.History != nil {
		n.History = make([]Answers, len(s.History))
		for i, h := range s.History {
			n.History[i] = h.Clone()
		}
	}
	return n
}

func (s State) SetIdentity(v Identity) State {
	n := s.clone()
	n.Identity = &v
	return n
}

func (s State) SetQualification(v Qualification) State {
	n := s.clone()
	n.Qualification = &v
	return n
}

func (s State) SetWorkExperience(v WorkExperience) State {
	n := s.clone()
	n.WorkExperience = &v
	return n
}

func (s State) SetEmployment(v Employment) State {
	n := s.clone()
	n.Employment = &v
	return n
}

func (s State) SetPartner(v Partner) State {
	n := s.clone()
	n.Partner = &v
	return n
}

// Set replaces the category c belongs to.
func (s State) Set(c Category) State {
	switch v := c.(type) {
	case Identity:
		return s.SetIdentity(v)
	case Qualification:
		return s.SetQualification(v)
	case WorkExperience:
		return s.SetWorkExperience(v)
	case Employment:
		return s.SetEmployment(v)
	case Partner:
		return s.SetPartner(v)
	}
	return s.clone()
}

// MarkFinal records that the user reached the end of the flow.
func (s State) MarkFinal() State {
	n := s.clone()
	n.IsFinal = true
	return n
}

// Reset starts a fresh pass through the questionnaire and keeps history.
func (s State) Reset() State {
	return State{History: s.clone().History}
}

// Clear discards the answers and the history.
func (s State) Clear() State {
	return Empty()
}

// SaveHistory appends a to the history and starts a fresh pass.
func (s State) SaveHistory(a Answers) State {
	history := s.clone().History
	return State{History: append(history, a.Clone())}
}

// SaveCurrent appends the current answers to the history and starts a
// fresh pass.
func (s State) SaveCurrent() State {
	return s.SaveHistory(s.Answers)
}

// Equal reports whether two snapshots hold the same answers, flag and history.
func (s State) Equal(o State) bool {
	if s.IsFinal != o.IsFinal || !s.Answers.equal(o.Answers) {
		return false
	}
	return slices.EqualFunc(s.History, o.History, Answers.equal)
}

func (a Answers) equal(o Answers) bool {
	return ptrEqual(a.Identity, o.Identity) &&
		ptrEqual(a.Qualification, o.Qualification) &&
		ptrEqual(a.WorkExperience, o.WorkExperience) &&
		employmentEqual(a.Employment, o.Employment) &&
		ptrEqual(a.Partner, o.Partner)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func employmentEqual(a, b *Employment) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.HasJobInNZ != b.HasJobInNZ || a.HasJobOfferInNZ != b.HasJobOfferInNZ ||
		a.HasWorkExperienceInASS != b.HasWorkExperienceInASS ||
		a.WorkOutsideAuckland != b.WorkOutsideAuckland || a.WorkType != b.WorkType {
		return false
	}
	if a.HourlyRate == nil || b.HourlyRate == nil {
		return a.HourlyRate == b.HourlyRate
	}
	return a.HourlyRate.Equal(*b.HourlyRate)
}
