package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pieme/nzpoints/internal/questionnaire"
	"github.com/pieme/nzpoints/internal/rules"
)

var now = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	tbl, err := rules.LoadBuiltin(rules.Default)
	if err != nil {
		t.Fatal(err)
	}
	return New(tbl, opts...)
}

func yearsBefore(n int) questionnaire.Date {
	return questionnaire.DateOf(now).AddYears(-n)
}

func rate(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func points(t *testing.T, rs ResultSet, c Category) int {
	t.Helper()
	it, ok := rs.Item(c)
	if !ok {
		t.Fatalf("no item for %s", c)
	}
	return it.Points
}

func fullState() questionnaire.State {
	return questionnaire.Empty().
		SetIdentity(questionnaire.Identity{DateOfBirth: yearsBefore(30)}).
		SetQualification(questionnaire.Qualification{
			QualificationLevel:      questionnaire.Level3To6,
			HasQualificationInNZ:    true,
			StartedBefore25July2011: true,
			RecognisedLevel:         questionnaire.PostgradTwoYearsPlus,
		}).
		SetWorkExperience(questionnaire.WorkExperience{
			WorkExperienceYears:      questionnaire.Experience4To6Years,
			HasWorkExperienceInNZ:    true,
			HasWorkExperienceInASS:   true,
			WorkExperienceYearsInASS: questionnaire.Experience8To10Years,
		}).
		SetEmployment(questionnaire.Employment{
			HasJobInNZ:             true,
			HourlyRate:             rate("60"),
			HasWorkExperienceInASS: true,
			WorkOutsideAuckland:    true,
		}).
		SetPartner(questionnaire.Partner{
			HasSkilledJobInNZ:  true,
			HasQualification:   true,
			QualificationLevel: questionnaire.Level7To8,
		})
}

func TestSeedScenarios(t *testing.T) {
	e := newEngine(t)
	s := questionnaire.Empty()
	tests := []struct {
		name     string
		state    questionnaire.State
		category Category
		want     int
	}{
		{"age 30", s.SetIdentity(questionnaire.Identity{DateOfBirth: yearsBefore(30)}), CategoryIdentity, 30},
		{"age 53", s.SetIdentity(questionnaire.Identity{DateOfBirth: yearsBefore(53)}), CategoryIdentity, 5},
		{"level 9-10 overseas", s.SetQualification(questionnaire.Qualification{
			QualificationLevel: questionnaire.Level9To10,
		}), CategoryQualification, 60},
		{"level 3-6 nz with bonuses", s.SetQualification(questionnaire.Qualification{
			QualificationLevel:      questionnaire.Level3To6,
			HasQualificationInNZ:    true,
			StartedBefore25July2011: true,
			RecognisedLevel:         questionnaire.PostgradTwoYearsPlus,
		}), CategoryQualification, 65},
		{"experience with shortage", s.SetWorkExperience(questionnaire.WorkExperience{
			WorkExperienceYears:      questionnaire.Experience4To6Years,
			HasWorkExperienceInNZ:    true,
			HasWorkExperienceInASS:   true,
			WorkExperienceYearsInASS: questionnaire.Experience8To10Years,
		}), CategoryWorkExperience, 65},
		{"employment all bonuses", s.SetEmployment(questionnaire.Employment{
			HasJobInNZ:             true,
			HourlyRate:             rate("60"),
			HasWorkExperienceInASS: true,
			WorkOutsideAuckland:    true,
		}), CategoryEmployment, 110},
		{"partner skilled and qualified", s.SetPartner(questionnaire.Partner{
			HasSkilledJobInNZ:  true,
			HasQualification:   true,
			QualificationLevel: questionnaire.Level7To8,
		}), CategoryPartner, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := e.Evaluate(tt.state, now)
			if got := points(t, rs, tt.category); got != tt.want {
				t.Errorf("%s = %d, want %d", tt.category, got, tt.want)
			}
			if rs.Total != tt.want {
				t.Errorf("total = %d, want %d", rs.Total, tt.want)
			}
		})
	}
}

func TestFullState(t *testing.T) {
	rs := newEngine(t).Evaluate(fullState(), now)
	if rs.Total != 310 {
		t.Errorf("total = %d, want 310", rs.Total)
	}
	if !rs.MeetsThreshold() {
		t.Error("310 should meet the 160 threshold")
	}
	if len(rs.Anomalies) != 0 {
		t.Errorf("unexpected anomalies: %v", rs.Anomalies)
	}
	if rs.RuleTable != "nz-smc" || rs.RuleVersion != 1 {
		t.Errorf("rule table = %s v%d", rs.RuleTable, rs.RuleVersion)
	}
}

func TestItemsOrderAndLabels(t *testing.T) {
	rs := newEngine(t).Evaluate(questionnaire.Empty(), now)
	want := []struct {
		c     Category
		label string
	}{
		{CategoryIdentity, "Date of birth"},
		{CategoryQualification, "Qualification"},
		{CategoryWorkExperience, "Work experience"},
		{CategoryEmployment, "Skilled employment"},
		{CategoryPartner, "Partner"},
	}
	if len(rs.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(rs.Items), len(want))
	}
	for i, w := range want {
		it := rs.Items[i]
		if it.Category != w.c || it.Label != w.label {
			t.Errorf("item %d = %s %q, want %s %q", i, it.Category, it.Label, w.c, w.label)
		}
		if it.Points != 0 {
			t.Errorf("unanswered %s scored %d", it.Category, it.Points)
		}
		if it.Breakdown != nil {
			t.Errorf("unanswered %s has breakdown %v", it.Category, it.Breakdown)
		}
	}
	if rs.Total != 0 {
		t.Errorf("empty total = %d", rs.Total)
	}
}

func TestAgeBands(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		age  int
		want int
	}{
		{15, 0}, {19, 0}, {20, 30}, {39, 30}, {40, 20}, {44, 20},
		{45, 10}, {49, 10}, {50, 5}, {55, 5}, {56, 0}, {80, 0},
	}
	prev := -1
	for _, tt := range tests {
		rs := e.Evaluate(questionnaire.Empty().SetIdentity(questionnaire.Identity{DateOfBirth: yearsBefore(tt.age)}), now)
		got := points(t, rs, CategoryIdentity)
		if got != tt.want {
			t.Errorf("age %d = %d, want %d", tt.age, got, tt.want)
		}
		if tt.age >= 40 && prev >= 0 && got > prev {
			t.Errorf("age %d scored %d, more than a younger band (%d)", tt.age, got, prev)
		}
		if tt.age >= 20 {
			prev = got
		}
	}
}

func TestAgeDayBeforeBirthday(t *testing.T) {
	e := newEngine(t)
	// Turns 40 tomorrow, so still 39.
	dob := questionnaire.DateOf(now.AddDate(-40, 0, 1))
	rs := e.Evaluate(questionnaire.Empty().SetIdentity(questionnaire.Identity{DateOfBirth: dob}), now)
	if got := points(t, rs, CategoryIdentity); got != 30 {
		t.Errorf("got %d, want 30", got)
	}
}

func TestFutureDateOfBirth(t *testing.T) {
	e := newEngine(t)
	rs := e.Evaluate(questionnaire.Empty().SetIdentity(questionnaire.Identity{DateOfBirth: yearsBefore(-2)}), now)
	if got := points(t, rs, CategoryIdentity); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
	if len(rs.Anomalies) != 0 {
		t.Errorf("future date should not be flagged: %v", rs.Anomalies)
	}
}

func TestQualificationMonotonic(t *testing.T) {
	e := newEngine(t)
	for _, nz := range []bool{false, true} {
		prev := -1
		for _, lvl := range []questionnaire.QualificationLevel{
			questionnaire.QualificationUnset, questionnaire.Level3To6, questionnaire.Level7To8, questionnaire.Level9To10,
		} {
			rs := e.Evaluate(questionnaire.Empty().SetQualification(questionnaire.Qualification{
				QualificationLevel:      lvl,
				HasQualificationInNZ:    nz,
				StartedBefore25July2011: true,
				RecognisedLevel:         questionnaire.BachelorTwoYearsPlus,
			}), now)
			got := points(t, rs, CategoryQualification)
			if got < prev {
				t.Errorf("nz=%v level %s scored %d, below previous %d", nz, lvl, got, prev)
			}
			prev = got
		}
	}
}

func TestQualificationBonusesNeedNZ(t *testing.T) {
	e := newEngine(t)
	rs := e.Evaluate(questionnaire.Empty().SetQualification(questionnaire.Qualification{
		QualificationLevel:      questionnaire.Level7To8,
		StartedBefore25July2011: true,
		RecognisedLevel:         questionnaire.PostgradTwoYearsPlus,
	}), now)
	if got := points(t, rs, CategoryQualification); got != 50 {
		t.Errorf("got %d, want 50", got)
	}
}

func TestWorkExperienceBands(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		band     questionnaire.ExperienceBand
		years    int
		shortage int
	}{
		{questionnaire.Experience2To4Years, 10, 10},
		{questionnaire.Experience4To6Years, 15, 20},
		{questionnaire.Experience6To8Years, 0, 30},
		{questionnaire.Experience8To10Years, 0, 40},
		{questionnaire.Experience10PlusYears, 0, 40},
	}
	for _, tt := range tests {
		t.Run(tt.band.String(), func(t *testing.T) {
			rs := e.Evaluate(questionnaire.Empty().SetWorkExperience(questionnaire.WorkExperience{
				WorkExperienceYears: tt.band,
			}), now)
			if got := points(t, rs, CategoryWorkExperience); got != tt.years {
				t.Errorf("years = %d, want %d", got, tt.years)
			}
			rs = e.Evaluate(questionnaire.Empty().SetWorkExperience(questionnaire.WorkExperience{
				HasWorkExperienceInASS:   true,
				WorkExperienceYearsInASS: tt.band,
			}), now)
			if got := points(t, rs, CategoryWorkExperience); got != tt.shortage {
				t.Errorf("shortage = %d, want %d", got, tt.shortage)
			}
		})
	}
}

func TestShortageYearsIgnoredWithoutFlag(t *testing.T) {
	rs := newEngine(t).Evaluate(questionnaire.Empty().SetWorkExperience(questionnaire.WorkExperience{
		WorkExperienceYearsInASS: questionnaire.Experience10PlusYears,
	}), now)
	if got := points(t, rs, CategoryWorkExperience); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestEmploymentGate(t *testing.T) {
	e := newEngine(t)
	closed := questionnaire.Employment{
		HourlyRate:             rate("99"),
		HasWorkExperienceInASS: true,
		WorkOutsideAuckland:    true,
		WorkType:               questionnaire.FullTime,
	}
	rs := e.Evaluate(questionnaire.Empty().SetEmployment(closed), now)
	if got := points(t, rs, CategoryEmployment); got != 0 {
		t.Errorf("gate closed = %d, want 0", got)
	}

	offer := closed
	offer.HasJobOfferInNZ = true
	rs = e.Evaluate(questionnaire.Empty().SetEmployment(offer), now)
	if got := points(t, rs, CategoryEmployment); got != 110 {
		t.Errorf("offer only = %d, want 110", got)
	}
}

func TestHourlyRateThreshold(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		rate *decimal.Decimal
		want int
	}{
		{nil, 50},
		{rate("50.99"), 50},
		{rate("51"), 70},
		{rate("51.00"), 70},
		{rate("120.5"), 70},
	}
	for _, tt := range tests {
		rs := e.Evaluate(questionnaire.Empty().SetEmployment(questionnaire.Employment{
			HasJobInNZ: true,
			HourlyRate: tt.rate,
		}), now)
		if got := points(t, rs, CategoryEmployment); got != tt.want {
			t.Errorf("rate %v = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestPartnerLevels(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		level questionnaire.QualificationLevel
		want  int
	}{
		{questionnaire.Level3To6, 10},
		{questionnaire.Level7To8, 20},
		{questionnaire.Level9To10, 20},
	}
	for _, tt := range tests {
		rs := e.Evaluate(questionnaire.Empty().SetPartner(questionnaire.Partner{
			HasQualification:   true,
			QualificationLevel: tt.level,
			HasRequiredLevel:   true,
		}), now)
		if got := points(t, rs, CategoryPartner); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.level, got, tt.want)
		}
	}

	rs := e.Evaluate(questionnaire.Empty().SetPartner(questionnaire.Partner{
		QualificationLevel: questionnaire.Level9To10,
	}), now)
	if got := points(t, rs, CategoryPartner); got != 0 {
		t.Errorf("without hasQualification = %d, want 0", got)
	}
}

func TestOutOfRangeScoresZeroAndLogs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := newEngine(t, WithLogger(zap.New(core)))

	rs := e.Evaluate(questionnaire.Empty().
		SetQualification(questionnaire.Qualification{QualificationLevel: questionnaire.QualificationLevel(9)}).
		SetWorkExperience(questionnaire.WorkExperience{
			WorkExperienceYears:      questionnaire.Experience2To4Years,
			HasWorkExperienceInASS:   true,
			WorkExperienceYearsInASS: questionnaire.ExperienceBand(-4),
		}), now)

	if got := points(t, rs, CategoryQualification); got != 0 {
		t.Errorf("qualification = %d, want 0", got)
	}
	if got := points(t, rs, CategoryWorkExperience); got != 10 {
		t.Errorf("work experience = %d, want 10", got)
	}
	if len(rs.Anomalies) != 2 {
		t.Fatalf("anomalies = %v, want 2", rs.Anomalies)
	}
	if rs.Anomalies[0].Field != "qualificationLevel" || rs.Anomalies[0].Value != "8" {
		t.Errorf("first anomaly = %+v", rs.Anomalies[0])
	}
	if logs.FilterMessage("unpriced answer").Len() != 2 {
		t.Errorf("warn logs = %d, want 2", logs.Len())
	}
}

func TestPartnerQualificationWithoutKnownLevel(t *testing.T) {
	e := newEngine(t)
	tests := []struct {
		name   string
		level  questionnaire.QualificationLevel
		reason string
	}{
		{"unset", questionnaire.QualificationUnset, "missing for partner qualification, priced as level-7-8"},
		{"out of range", questionnaire.QualificationLevel(7), "not a known option, priced as level-7-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := e.Evaluate(questionnaire.Empty().SetPartner(questionnaire.Partner{
				HasSkilledJobInNZ:  true,
				HasQualification:   true,
				QualificationLevel: tt.level,
			}), now)
			if got := points(t, rs, CategoryPartner); got != 40 {
				t.Errorf("partner = %d, want 40", got)
			}
			if len(rs.Anomalies) != 1 || rs.Anomalies[0].Category != CategoryPartner {
				t.Fatalf("anomalies = %v", rs.Anomalies)
			}
			if rs.Anomalies[0].Reason != tt.reason {
				t.Errorf("reason = %q, want %q", rs.Anomalies[0].Reason, tt.reason)
			}
		})
	}
}

func TestTableWithoutEntry(t *testing.T) {
	tbl, err := rules.LoadBuiltin(rules.Default)
	if err != nil {
		t.Fatal(err)
	}
	delete(tbl.Qualification.Levels, "level-9-10")
	rs := New(tbl).Evaluate(questionnaire.Empty().SetQualification(questionnaire.Qualification{
		QualificationLevel: questionnaire.Level9To10,
	}), now)
	if got := points(t, rs, CategoryQualification); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
	if len(rs.Anomalies) != 1 || rs.Anomalies[0].Reason != "no rule-table entry" {
		t.Errorf("anomalies = %v", rs.Anomalies)
	}
}

func TestIdempotentAndSumConsistent(t *testing.T) {
	e := newEngine(t)
	states := []questionnaire.State{questionnaire.Empty(), fullState(), fullState().SetPartner(questionnaire.Partner{})}
	for i, s := range states {
		a := e.Evaluate(s, now)
		b := e.Evaluate(s, now)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("state %d: results differ", i)
		}
		if TotalOf(a.Items) != a.Total {
			t.Errorf("state %d: TotalOf = %d, total = %d", i, TotalOf(a.Items), a.Total)
		}
		for _, it := range a.Items {
			if it.Points < 0 {
				t.Errorf("state %d: %s negative", i, it.Category)
			}
		}
	}
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	s := fullState()
	before := s.SaveCurrent()
	newEngine(t).Evaluate(s, now)
	if !s.SaveCurrent().Equal(before) {
		t.Error("state changed during evaluation")
	}
}

func TestHistoryNotScored(t *testing.T) {
	s := fullState().SaveCurrent()
	rs := newEngine(t).Evaluate(s, now)
	if rs.Total != 0 {
		t.Errorf("total = %d, want 0 after saving to history", rs.Total)
	}
}

type countingRecorder struct{ n int }

func (c *countingRecorder) ObserveEvaluation(ResultSet) { c.n++ }

func TestRecorder(t *testing.T) {
	rec := &countingRecorder{}
	e := newEngine(t, WithRecorder(rec))
	e.Evaluate(fullState(), now)
	e.Evaluate(questionnaire.Empty(), now)
	if rec.n != 2 {
		t.Errorf("recorded %d, want 2", rec.n)
	}
}

func TestTotalOf(t *testing.T) {
	if got := TotalOf(nil); got != 0 {
		t.Errorf("TotalOf(nil) = %d", got)
	}
	items := []ResultItem{{Points: 30}, {Points: 65}, {Points: 5}}
	if got := TotalOf(items); got != 100 {
		t.Errorf("TotalOf = %d, want 100", got)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories() {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if Category("SPOUSE").Valid() {
		t.Error("SPOUSE should be invalid")
	}
}
