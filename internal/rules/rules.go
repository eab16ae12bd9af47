// Package rules loads the versioned points tables the engine scores against.
package rules

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/pieme/nzpoints/internal/questionnaire"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Default is the builtin table used when none is named.
const Default = "nz-smc"

// Table is one published version of the points table. Choice-keyed maps use
// the questionnaire option names.
type Table struct {
	Name               string          `json:"name" yaml:"name"`
	Version            int             `json:"version" yaml:"version"`
	Description        string          `json:"description" yaml:"description"`
	EffectiveFrom      string          `json:"effective_from,omitempty" yaml:"effective_from,omitempty"`
	SelectionThreshold int             `json:"selection_threshold" yaml:"selection_threshold"`
	Labels             Labels          `json:"labels" yaml:"labels"`
	Age                AgeRules        `json:"age" yaml:"age"`
	Qualification      QualRules       `json:"qualification" yaml:"qualification"`
	WorkExperience     ExperienceRules `json:"work_experience" yaml:"work_experience"`
	Employment         EmploymentRules `json:"employment" yaml:"employment"`
	Partner            PartnerRules    `json:"partner" yaml:"partner"`
}

// Labels are the display names of the five result categories.
type Labels struct {
	Identity       string `json:"identity" yaml:"identity"`
	Qualification  string `json:"qualification" yaml:"qualification"`
	WorkExperience string `json:"work_experience" yaml:"work_experience"`
	Employment     string `json:"employment" yaml:"employment"`
	Partner        string `json:"partner" yaml:"partner"`
}

// AgeRules bounds the scored age range. Bands are inclusive on both ends
// and checked in order; ages outside every band score zero.
type AgeRules struct {
	Minimum int       `json:"minimum" yaml:"minimum"`
	Maximum int       `json:"maximum" yaml:"maximum"`
	Bands   []AgeBand `json:"bands" yaml:"bands"`
}

type AgeBand struct {
	Min    int `json:"min" yaml:"min"`
	Max    int `json:"max" yaml:"max"`
	Points int `json:"points" yaml:"points"`
}

// Points returns the points for age and whether a band matched.
func (a AgeRules) Points(age int) (int, bool) {
	for _, b := range a.Bands {
		if age >= b.Min && age <= b.Max {
			return b.Points, true
		}
	}
	return 0, false
}

type QualRules struct {
	Levels                 map[string]int `json:"levels" yaml:"levels"`
	StartedBefore2011Bonus int            `json:"started_before_2011_bonus" yaml:"started_before_2011_bonus"`
	RecognisedLevels       map[string]int `json:"recognised_levels" yaml:"recognised_levels"`
}

type ExperienceRules struct {
	Years             map[string]int `json:"years" yaml:"years"`
	NZExperienceBonus int            `json:"nz_experience_bonus" yaml:"nz_experience_bonus"`
	ShortageYears     map[string]int `json:"shortage_years" yaml:"shortage_years"`
}

type EmploymentRules struct {
	JobOrOffer           int             `json:"job_or_offer" yaml:"job_or_offer"`
	HourlyRateThreshold  decimal.Decimal `json:"hourly_rate_threshold" yaml:"hourly_rate_threshold"`
	HourlyRateBonus      int             `json:"hourly_rate_bonus" yaml:"hourly_rate_bonus"`
	ShortageBonus        int             `json:"shortage_bonus" yaml:"shortage_bonus"`
	OutsideAucklandBonus int             `json:"outside_auckland_bonus" yaml:"outside_auckland_bonus"`
}

type PartnerRules struct {
	SkilledJobBonus     int            `json:"skilled_job_bonus" yaml:"skilled_job_bonus"`
	QualificationLevels map[string]int `json:"qualification_levels" yaml:"qualification_levels"`
}

// LoadBuiltin loads a built-in table by name.
func LoadBuiltin(name string) (*Table, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("rules.LoadBuiltin: unknown table %q: %w", name, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules.LoadBuiltin: %q: %w", name, err)
	}
	return t, nil
}

// Load reads a custom table from path and validates it.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules.Load: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules.Load: %s: %w", path, err)
	}
	return t, nil
}

// Decode reads a table document without validating it. Unknown keys are
// rejected so a misspelt bonus does not silently price at zero.
func Decode(data []byte) (*Table, error) {
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse: empty document")
		}
		return nil, fmt.Errorf("parse: %w", err)
	}
	return &t, nil
}

// Parse decodes and validates a table document.
func Parse(data []byte) (*Table, error) {
	t, err := Decode(data)
	if err != nil {
		return nil, err
	}
	switch probs := t.Validate(); len(probs) {
	case 0:
	case 1:
		return nil, fmt.Errorf("invalid table: %s", probs[0])
	default:
		return nil, fmt.Errorf("invalid table: %s (and %d more)", probs[0], len(probs)-1)
	}
	return t, nil
}

// List returns the names of all available built-in tables.
func List() ([]string, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, ".yaml") {
			names = append(names, strings.TrimSuffix(n, ".yaml"))
		}
	}
	return names, nil
}

// Resolve picks a table: a file path wins over a builtin name, and an
// empty name means Default.
func Resolve(name, path string) (*Table, error) {
	if path != "" {
		return Load(path)
	}
	if name == "" {
		name = Default
	}
	return LoadBuiltin(name)
}

// Format renders the table as readable text for the rules show command.
func Format(t *Table) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Rule table: %s (version %d)\n\n", t.Name, t.Version)
	if t.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(t.Description))
	}
	if t.EffectiveFrom != "" {
		fmt.Fprintf(&b, "Effective from: %s\n", t.EffectiveFrom)
	}
	fmt.Fprintf(&b, "Selection threshold: %dpt\n\n", t.SelectionThreshold)

	fmt.Fprintf(&b, "### %s\n\n", t.Labels.Identity)
	fmt.Fprintf(&b, "- scored ages: %d to %d\n", t.Age.Minimum, t.Age.Maximum)
	for _, band := range t.Age.Bands {
		fmt.Fprintf(&b, "- age %d-%d: %dpt\n", band.Min, band.Max, band.Points)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "### %s\n\n", t.Labels.Qualification)
	renderChoices(&b, "level", t.Qualification.Levels, questionnaire.QualificationLevelNames())
	fmt.Fprintf(&b, "- NZ study started before 25 July 2011: +%dpt\n", t.Qualification.StartedBefore2011Bonus)
	renderChoices(&b, "recognised", t.Qualification.RecognisedLevels, questionnaire.RecognisedLevelNames())
	b.WriteString("\n")

	fmt.Fprintf(&b, "### %s\n\n", t.Labels.WorkExperience)
	renderChoices(&b, "years", t.WorkExperience.Years, questionnaire.ExperienceBandNames())
	fmt.Fprintf(&b, "- NZ experience: +%dpt\n", t.WorkExperience.NZExperienceBonus)
	renderChoices(&b, "shortage years", t.WorkExperience.ShortageYears, questionnaire.ExperienceBandNames())
	b.WriteString("\n")

	e := t.Employment
	fmt.Fprintf(&b, "### %s\n\n", t.Labels.Employment)
	fmt.Fprintf(&b, "- job or offer in NZ: %dpt\n", e.JobOrOffer)
	fmt.Fprintf(&b, "- hourly rate at least $%s: +%dpt\n", e.HourlyRateThreshold.String(), e.HourlyRateBonus)
	fmt.Fprintf(&b, "- absolute skills shortage: +%dpt\n", e.ShortageBonus)
	fmt.Fprintf(&b, "- outside Auckland: +%dpt\n\n", e.OutsideAucklandBonus)

	fmt.Fprintf(&b, "### %s\n\n", t.Labels.Partner)
	fmt.Fprintf(&b, "- skilled job in NZ: +%dpt\n", t.Partner.SkilledJobBonus)
	renderChoices(&b, "qualification", t.Partner.QualificationLevels, questionnaire.QualificationLevelNames())

	return b.String()
}

// renderChoices lists known options in questionnaire order, then any
// extras sorted by name.
func renderChoices(b *strings.Builder, what string, m map[string]int, order []string) {
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		seen[name] = true
		if p, ok := m[name]; ok {
			fmt.Fprintf(b, "- %s %s: %dpt\n", what, name, p)
		}
	}
	var extra []string
	for k := range m {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		fmt.Fprintf(b, "- %s %s: %dpt\n", what, k, m[k])
	}
}
