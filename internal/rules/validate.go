package rules

import (
	"fmt"
	"sort"

	"github.com/pieme/nzpoints/internal/questionnaire"
)

// Problem is one defect found in a table.
type Problem struct {
	Path    string
	Message string
}

func (p Problem) String() string {
	return p.Path + ": " + p.Message
}

// Validate checks the table for defects that would make scoring
// ambiguous or wrong. It returns nil for a sound table.
func (t *Table) Validate() []Problem {
	var probs []Problem
	add := func(path, format string, args ...any) {
		probs = append(probs, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if t.Name == "" {
		add("name", "required")
	}
	if t.Version < 1 {
		add("version", "must be >= 1, got %d", t.Version)
	}
	if t.SelectionThreshold < 0 {
		add("selection_threshold", "must be non-negative, got %d", t.SelectionThreshold)
	}

	labels := map[string]string{
		"identity":        t.Labels.Identity,
		"qualification":   t.Labels.Qualification,
		"work_experience": t.Labels.WorkExperience,
		"employment":      t.Labels.Employment,
		"partner":         t.Labels.Partner,
	}
	for _, k := range sortedKeys(labels) {
		if labels[k] == "" {
			add("labels."+k, "required")
		}
	}

	probs = append(probs, t.Age.validate()...)

	checkChoices(add, "qualification.levels", t.Qualification.Levels, questionnaire.QualificationLevelNames())
	checkPoints(add, "qualification.started_before_2011_bonus", t.Qualification.StartedBefore2011Bonus)
	checkChoices(add, "qualification.recognised_levels", t.Qualification.RecognisedLevels, questionnaire.RecognisedLevelNames())

	checkChoices(add, "work_experience.years", t.WorkExperience.Years, questionnaire.ExperienceBandNames())
	checkPoints(add, "work_experience.nz_experience_bonus", t.WorkExperience.NZExperienceBonus)
	checkChoices(add, "work_experience.shortage_years", t.WorkExperience.ShortageYears, questionnaire.ExperienceBandNames())

	e := t.Employment
	checkPoints(add, "employment.job_or_offer", e.JobOrOffer)
	if e.HourlyRateThreshold.IsNegative() {
		add("employment.hourly_rate_threshold", "must be non-negative, got %s", e.HourlyRateThreshold)
	}
	checkPoints(add, "employment.hourly_rate_bonus", e.HourlyRateBonus)
	checkPoints(add, "employment.shortage_bonus", e.ShortageBonus)
	checkPoints(add, "employment.outside_auckland_bonus", e.OutsideAucklandBonus)

	checkPoints(add, "partner.skilled_job_bonus", t.Partner.SkilledJobBonus)
	checkChoices(add, "partner.qualification_levels", t.Partner.QualificationLevels, questionnaire.QualificationLevelNames())

	return probs
}

func (a AgeRules) validate() []Problem {
	var probs []Problem
	add := func(path, format string, args ...any) {
		probs = append(probs, Problem{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	if a.Minimum > a.Maximum {
		add("age", "minimum %d is above maximum %d", a.Minimum, a.Maximum)
	}
	if len(a.Bands) == 0 {
		add("age.bands", "at least one band is required")
	}
	for i, b := range a.Bands {
		path := fmt.Sprintf("age.bands[%d]", i)
		if b.Min > b.Max {
			add(path, "min %d is above max %d", b.Min, b.Max)
		}
		if b.Points < 0 {
			add(path+".points", "must be non-negative, got %d", b.Points)
		}
		if b.Min < a.Minimum || b.Max > a.Maximum {
			add(path, "band %d-%d falls outside %d-%d", b.Min, b.Max, a.Minimum, a.Maximum)
		}
		for j := 0; j < i; j++ {
			o := a.Bands[j]
			if b.Min <= o.Max && o.Min <= b.Max {
				add(path, "overlaps age.bands[%d]", j)
			}
		}
	}
	return probs
}

func checkPoints(add func(string, string, ...any), path string, v int) {
	if v < 0 {
		add(path, "must be non-negative, got %d", v)
	}
}

// checkChoices requires every option to be priced and rejects names the
// questionnaire does not offer.
func checkChoices(add func(string, string, ...any), path string, m map[string]int, names []string) {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
		if _, ok := m[n]; !ok {
			add(path, "missing option %q", n)
		}
	}
	for _, k := range sortedKeys(m) {
		if !known[k] {
			add(path+"."+k, "unknown option")
			continue
		}
		checkPoints(add, path+"."+k, m[k])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
