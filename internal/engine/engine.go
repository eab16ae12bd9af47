// Package engine computes points for a questionnaire snapshot against a
// rule table. Evaluation is pure: it reads the snapshot and the injected
// time and allocates a fresh result, so one Engine is safe for concurrent
// use.
package engine

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/pieme/nzpoints/internal/questionnaire"
	"github.com/pieme/nzpoints/internal/rules"
)

// Recorder observes finished evaluations.
type Recorder interface {
	ObserveEvaluation(rs ResultSet)
}

// Engine scores snapshots against one rule table.
type Engine struct {
	table *rules.Table
	log   *zap.Logger
	rec   Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger anomalies are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRecorder sets a recorder that sees every result.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// New returns an engine for table.
func New(table *rules.Table, opts ...Option) *Engine {
	e := &Engine{table: table, log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Table returns the rule table the engine scores against.
func (e *Engine) Table() *rules.Table {
	return e.table
}

// Evaluate scores the current answers in state as of now. History is not
// scored. Unanswered categories score zero.
func (e *Engine) Evaluate(state questionnaire.State, now time.Time) ResultSet {
	ev := evaluation{table: e.table, now: now}
	t := e.table
	items := []ResultItem{
		item(CategoryIdentity, t.Labels.Identity, ev.identity(state.Identity)),
		item(CategoryQualification, t.Labels.Qualification, ev.qualification(state.Qualification)),
		item(CategoryWorkExperience, t.Labels.WorkExperience, ev.workExperience(state.WorkExperience)),
		item(CategoryEmployment, t.Labels.Employment, ev.employment(state.Employment)),
		item(CategoryPartner, t.Labels.Partner, ev.partner(state.Partner)),
	}
	rs := ResultSet{
		Items:              items,
		Total:              TotalOf(items),
		RuleTable:          t.Name,
		RuleVersion:        t.Version,
		SelectionThreshold: t.SelectionThreshold,
		EvaluatedAt:        now.UTC(),
		Anomalies:          ev.anomalies,
	}

	for _, a := range rs.Anomalies {
		e.log.Warn("unpriced answer",
			zap.String("category", string(a.Category)),
			zap.String("field", a.Field),
			zap.String("value", a.Value),
			zap.String("reason", a.Reason),
			zap.String("rule_table", t.Name),
			zap.Int("rule_version", t.Version),
		)
	}
	e.log.Debug("evaluated",
		zap.Int("total", rs.Total),
		zap.String("rule_table", t.Name),
		zap.Int("anomalies", len(rs.Anomalies)),
	)
	if e.rec != nil {
		e.rec.ObserveEvaluation(rs)
	}
	return rs
}

// evaluation carries the per-call inputs and collects anomalies.
type evaluation struct {
	table     *rules.Table
	now       time.Time
	anomalies []Anomaly
}

func item(c Category, label string, parts []Component) ResultItem {
	return ResultItem{Category: c, Label: label, Points: sum(parts), Breakdown: parts}
}

func sum(parts []Component) int {
	n := 0
	for _, p := range parts {
		n += p.Points
	}
	return n
}

func (ev *evaluation) flag(c Category, field, value, reason string) {
	ev.anomalies = append(ev.anomalies, Anomaly{Category: c, Field: field, Value: value, Reason: reason})
}

// choice is an answered questionnaire option.
type choice interface {
	String() string
	Valid() bool
}

// lookup prices an option from a name-keyed table. Out of range options
// and options the table does not list score zero and are flagged.
func (ev *evaluation) lookup(c Category, field string, v choice, m map[string]int) int {
	if !v.Valid() {
		ev.flag(c, field, v.String(), "not a known option")
		return 0
	}
	p, ok := m[v.String()]
	if !ok {
		ev.flag(c, field, v.String(), "no rule-table entry")
		return 0
	}
	return p
}

func (ev *evaluation) identity(v *questionnaire.Identity) []Component {
	if v == nil {
		return nil
	}
	if v.DateOfBirth.IsZero() {
		ev.flag(CategoryIdentity, "dateOfBirth", "", "missing")
		return []Component{{Name: "age", Points: 0}}
	}
	age := AgeAt(v.DateOfBirth, ev.now)
	points, _ := ev.table.Age.Points(age)
	return []Component{{Name: "age", Detail: strconv.Itoa(age), Points: points}}
}

func (ev *evaluation) qualification(v *questionnaire.Qualification) []Component {
	if v == nil {
		return nil
	}
	r := ev.table.Qualification
	base := 0
	if v.QualificationLevel != questionnaire.QualificationUnset {
		base = ev.lookup(CategoryQualification, "qualificationLevel", v.QualificationLevel, r.Levels)
	}
	parts := []Component{{Name: "level", Detail: v.QualificationLevel.String(), Points: base}}

	started := 0
	if v.HasQualificationInNZ && v.StartedBefore25July2011 {
		started = r.StartedBefore2011Bonus
	}
	parts = append(parts, Component{Name: "started-before-2011", Points: started})

	recognised := 0
	if v.HasQualificationInNZ {
		if v.RecognisedLevel == questionnaire.RecognisedUnset {
			ev.flag(CategoryQualification, "recognisedLevel", v.RecognisedLevel.String(), "missing for NZ qualification")
		} else {
			recognised = ev.lookup(CategoryQualification, "recognisedLevel", v.RecognisedLevel, r.RecognisedLevels)
		}
	}
	parts = append(parts, Component{Name: "nz-recognised", Detail: v.RecognisedLevel.String(), Points: recognised})
	return parts
}

func (ev *evaluation) workExperience(v *questionnaire.WorkExperience) []Component {
	if v == nil {
		return nil
	}
	r := ev.table.WorkExperience
	years := 0
	if v.WorkExperienceYears != questionnaire.ExperienceUnset {
		years = ev.lookup(CategoryWorkExperience, "workExperienceYears", v.WorkExperienceYears, r.Years)
	}
	parts := []Component{{Name: "years", Detail: v.WorkExperienceYears.String(), Points: years}}

	nz := 0
	if v.HasWorkExperienceInNZ {
		nz = r.NZExperienceBonus
	}
	parts = append(parts, Component{Name: "nz-experience", Points: nz})

	shortage := 0
	if v.HasWorkExperienceInASS {
		if v.WorkExperienceYearsInASS == questionnaire.ExperienceUnset {
			ev.flag(CategoryWorkExperience, "workExperienceYearsInASS", v.WorkExperienceYearsInASS.String(), "missing for shortage experience")
		} else {
			shortage = ev.lookup(CategoryWorkExperience, "workExperienceYearsInASS", v.WorkExperienceYearsInASS, r.ShortageYears)
		}
	}
	parts = append(parts, Component{Name: "shortage-years", Detail: v.WorkExperienceYearsInASS.String(), Points: shortage})
	return parts
}

func (ev *evaluation) employment(v *questionnaire.Employment) []Component {
	if v == nil {
		return nil
	}
	if !v.HasJobOrOffer() {
		return []Component{{Name: "job-or-offer", Points: 0}}
	}
	r := ev.table.Employment
	parts := []Component{{Name: "job-or-offer", Points: r.JobOrOffer}}

	rate, detail := 0, ""
	if v.HourlyRate != nil {
		detail = v.HourlyRate.String()
		if v.HourlyRate.GreaterThanOrEqual(r.HourlyRateThreshold) {
			rate = r.HourlyRateBonus
		}
	}
	parts = append(parts, Component{Name: "hourly-rate", Detail: detail, Points: rate})

	shortage := 0
	if v.HasWorkExperienceInASS {
		shortage = r.ShortageBonus
	}
	parts = append(parts, Component{Name: "shortage", Points: shortage})

	outside := 0
	if v.WorkOutsideAuckland {
		outside = r.OutsideAucklandBonus
	}
	parts = append(parts, Component{Name: "outside-auckland", Points: outside})
	return parts
}

func (ev *evaluation) partner(v *questionnaire.Partner) []Component {
	if v == nil {
		return nil
	}
	r := ev.table.Partner
	job := 0
	if v.HasSkilledJobInNZ {
		job = r.SkilledJobBonus
	}
	parts := []Component{{Name: "skilled-job", Points: job}}

	qual, detail := 0, ""
	if v.HasQualification {
		level := v.QualificationLevel
		detail = level.String()
		if level.Valid() {
			qual = ev.lookup(CategoryPartner, "qualificationLevel", level, r.QualificationLevels)
		} else {
			// Anything but level-3-6 earns the level-7-8 or above bonus.
			above := questionnaire.Level7To8.String()
			qual = r.QualificationLevels[above]
			reason := "not a known option"
			if level == questionnaire.QualificationUnset {
				reason = "missing for partner qualification"
			}
			ev.flag(CategoryPartner, "qualificationLevel", detail, reason+", priced as "+above)
		}
	}
	parts = append(parts, Component{Name: "qualification", Detail: detail, Points: qual})
	return parts
}
