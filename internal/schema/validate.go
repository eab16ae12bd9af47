// Package schema validates questionnaire answers before they are stored and
// result sets after they are produced.
package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/pieme/nzpoints/internal/engine"
	"github.com/pieme/nzpoints/internal/questionnaire"
	"github.com/pieme/nzpoints/internal/rules"
)

// ValidationError describes a single schema violation.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// AsError folds errs into one error, or nil when errs is empty.
func AsError(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return fmt.Errorf("%d validation error(s): %s", len(errs), strings.Join(parts, "; "))
}

// ValidateStep applies the questionnaire's completion rules to one step's
// answers. The engine accepts anything; these rules gate what a session
// will store.
func ValidateStep(c questionnaire.Category, t *rules.Table, now time.Time) []ValidationError {
	var errs []ValidationError
	switch v := c.(type) {
	case questionnaire.Identity:
		errs = validateIdentity(v, t, now)
	case questionnaire.Qualification:
		if v.QualificationLevel == questionnaire.QualificationUnset {
			errs = append(errs, ValidationError{"qualification.qualificationLevel", "required"})
		} else if !v.QualificationLevel.Valid() {
			errs = append(errs, ValidationError{"qualification.qualificationLevel", fmt.Sprintf("invalid: %q", v.QualificationLevel)})
		}
		if v.HasQualificationInNZ {
			if v.RecognisedLevel == questionnaire.RecognisedUnset {
				errs = append(errs, ValidationError{"qualification.recognisedLevel", "required when hasQualificationInNZ"})
			} else if !v.RecognisedLevel.Valid() {
				errs = append(errs, ValidationError{"qualification.recognisedLevel", fmt.Sprintf("invalid: %q", v.RecognisedLevel)})
			}
		}
	case questionnaire.WorkExperience:
		if v.WorkExperienceYears == questionnaire.ExperienceUnset {
			errs = append(errs, ValidationError{"workExperience.workExperienceYears", "required"})
		} else if !v.WorkExperienceYears.Valid() {
			errs = append(errs, ValidationError{"workExperience.workExperienceYears", fmt.Sprintf("invalid: %q", v.WorkExperienceYears)})
		}
		if v.HasWorkExperienceInASS {
			if v.WorkExperienceYearsInASS == questionnaire.ExperienceUnset {
				errs = append(errs, ValidationError{"workExperience.workExperienceYearsInASS", "required when hasWorkExperienceInASS"})
			} else if !v.WorkExperienceYearsInASS.Valid() {
				errs = append(errs, ValidationError{"workExperience.workExperienceYearsInASS", fmt.Sprintf("invalid: %q", v.WorkExperienceYearsInASS)})
			}
		}
	case questionnaire.Employment:
		if v.HasJobOrOffer() {
			if v.WorkType == questionnaire.WorkTypeUnset {
				errs = append(errs, ValidationError{"employment.workType", "required when hasJobInNZ or hasJobOfferInNZ"})
			} else if !v.WorkType.Valid() {
				errs = append(errs, ValidationError{"employment.workType", fmt.Sprintf("invalid: %q", v.WorkType)})
			}
		}
		if v.HourlyRate != nil && v.HourlyRate.IsNegative() {
			errs = append(errs, ValidationError{"employment.hourlyRate", "must be non-negative"})
		}
	case questionnaire.Partner:
		if v.HasQualification {
			if v.QualificationLevel == questionnaire.QualificationUnset {
				errs = append(errs, ValidationError{"partner.qualificationLevel", "required when hasQualification"})
			} else if !v.QualificationLevel.Valid() {
				errs = append(errs, ValidationError{"partner.qualificationLevel", fmt.Sprintf("invalid: %q", v.QualificationLevel)})
			}
		}
	default:
		errs = append(errs, ValidationError{"step", fmt.Sprintf("unknown category %T", c)})
	}
	return errs
}

func validateIdentity(v questionnaire.Identity, t *rules.Table, now time.Time) []ValidationError {
	if v.DateOfBirth.IsZero() {
		return []ValidationError{{"identity.dateOfBirth", "required"}}
	}
	if v.DateOfBirth.After(questionnaire.DateOf(now)) {
		return []ValidationError{{"identity.dateOfBirth", "must not be in the future"}}
	}
	if age := engine.AgeAt(v.DateOfBirth, now); age > t.Age.Maximum {
		return []ValidationError{{"identity.dateOfBirth", fmt.Sprintf("age %d is above the maximum of %d", age, t.Age.Maximum)}}
	}
	return nil
}

// ValidateState runs ValidateStep over every answered category.
func ValidateState(s questionnaire.State, t *rules.Table, now time.Time) []ValidationError {
	var errs []ValidationError
	for _, step := range questionnaire.Steps() {
		if c := s.Get(step); c != nil {
			errs = append(errs, ValidateStep(c, t, now)...)
		}
	}
	return errs
}

// ValidateResult checks a ResultSet for structural validity.
func ValidateResult(rs engine.ResultSet) []ValidationError {
	var errs []ValidationError

	if rs.RuleTable == "" {
		errs = append(errs, ValidationError{"ruleTable", "required"})
	}
	if rs.RuleVersion < 1 {
		errs = append(errs, ValidationError{"ruleVersion", "must be >= 1"})
	}

	order := engine.Categories()
	if len(rs.Items) != len(order) {
		errs = append(errs, ValidationError{"items", fmt.Sprintf("expected %d items, got %d", len(order), len(rs.Items))})
	}
	for i, it := range rs.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if !it.Category.Valid() {
			errs = append(errs, ValidationError{prefix + ".category", fmt.Sprintf("invalid: %q", it.Category)})
		} else if i < len(order) && it.Category != order[i] {
			errs = append(errs, ValidationError{prefix + ".category", fmt.Sprintf("expected %s, got %s", order[i], it.Category)})
		}
		if it.Label == "" {
			errs = append(errs, ValidationError{prefix + ".label", "required"})
		}
		if it.Points < 0 {
			errs = append(errs, ValidationError{prefix + ".points", fmt.Sprintf("must be non-negative, got %d", it.Points)})
		}
		if len(it.Breakdown) > 0 {
			sum := 0
			for _, c := range it.Breakdown {
				sum += c.Points
			}
			if sum != it.Points {
				errs = append(errs, ValidationError{prefix + ".breakdown", fmt.Sprintf("components sum to %d, points %d", sum, it.Points)})
			}
		}
	}

	if expected := engine.TotalOf(rs.Items); rs.Total != expected {
		errs = append(errs, ValidationError{"total", fmt.Sprintf("total %d does not match computed %d", rs.Total, expected)})
	}
	return errs
}
