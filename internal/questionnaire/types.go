// Package questionnaire defines the answers collected by the points
// questionnaire and the immutable state snapshots built from them.
package questionnaire

import "github.com/shopspring/decimal"

// Identity holds the applicant's identity step.
type Identity struct {
	DateOfBirth Date `json:"dateOfBirth" yaml:"dateOfBirth"`
}

// Qualification holds the applicant's qualification step.
type Qualification struct {
	QualificationLevel      QualificationLevel `json:"qualificationLevel" yaml:"qualificationLevel"`
	HasQualificationInNZ    bool               `json:"hasQualificationInNZ" yaml:"hasQualificationInNZ"`
	StartedBefore25July2011 bool               `json:"startedBefore25July2011" yaml:"startedBefore25July2011"`
	RecognisedLevel         RecognisedLevel    `json:"recognisedLevel" yaml:"recognisedLevel"`
}

// WorkExperience holds the skilled work experience step. ASS is an area
// of absolute skills shortage.
type WorkExperience struct {
	WorkExperienceYears      ExperienceBand `json:"workExperienceYears" yaml:"workExperienceYears"`
	HasWorkExperienceInNZ    bool           `json:"hasWorkExperienceInNZ" yaml:"hasWorkExperienceInNZ"`
	HasWorkExperienceInASS   bool           `json:"hasWorkExperienceInASS" yaml:"hasWorkExperienceInASS"`
	WorkExperienceYearsInASS ExperienceBand `json:"workExperienceYearsInASS" yaml:"workExperienceYearsInASS"`
}

// Employment holds the skilled employment step.
type Employment struct {
	HasJobInNZ             bool     `json:"hasJobInNZ" yaml:"hasJobInNZ"`
	HasJobOfferInNZ        bool     `json:"hasJobOfferInNZ" yaml:"hasJobOfferInNZ"`
	HasWorkExperienceInASS bool     `json:"hasWorkExperienceInASS" yaml:"hasWorkExperienceInASS"`
	WorkOutsideAuckland    bool     `json:"workOutsideAuckland" yaml:"workOutsideAuckland"`
	WorkType               WorkType `json:"workType" yaml:"workType"`
	// HourlyRate is in NZD. Nil means the field was left empty.
	HourlyRate *decimal.Decimal `json:"hourlyRate,omitempty" yaml:"hourlyRate,omitempty"`
}

// HasJobOrOffer reports whether the applicant holds or has been offered
// skilled employment in New Zealand.
func (e Employment) HasJobOrOffer() bool {
	return e.HasJobInNZ || e.HasJobOfferInNZ
}

// Partner holds the partner step.
type Partner struct {
	HasRequiredLevel   bool               `json:"hasRequiredLevel" yaml:"hasRequiredLevel"`
	HasSkilledJobInNZ  bool               `json:"hasSkilledJobInNZ" yaml:"hasSkilledJobInNZ"`
	HasQualification   bool               `json:"hasQualification" yaml:"hasQualification"`
	QualificationLevel QualificationLevel `json:"qualificationLevel" yaml:"qualificationLevel"`
}

// Answers is one complete or partial pass through the questionnaire.
// A nil category has not been answered yet.
type Answers struct {
	Identity       *Identity       `json:"identity" yaml:"identity"`
	Qualification  *Qualification  `json:"qualification" yaml:"qualification"`
	WorkExperience *WorkExperience `json:"workExperience" yaml:"workExperience"`
	Employment     *Employment     `json:"employment" yaml:"employment"`
	Partner        *Partner        `json:"partner" yaml:"partner"`
}

// Empty reports whether no category has been answered.
func (a Answers) Empty() bool {
	return a.Identity == nil && a.Qualification == nil && a.WorkExperience == nil &&
		a.Employment == nil && a.Partner == nil
}

// Clone returns a deep copy of a.
func (a Answers) Clone() Answers {
	return Answers{
		Identity:       clonePtr(a.Identity),
		Qualification:  clonePtr(a.Qualification),
		WorkExperience: clonePtr(a.WorkExperience),
		Employment:     clonePtr(a.Employment),
		Partner:        clonePtr(a.Partner),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
