package questionnaire

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseStateYAML(t *testing.T) {
	doc := `
identity:
  dateOfBirth: 1994-06-15
qualification:
  qualificationLevel: level-3-6
  hasQualificationInNZ: true
  startedBefore25July2011: true
  recognisedLevel: postgrad-2y-plus
workExperience:
  workExperienceYears: 4-6-years
  hasWorkExperienceInNZ: true
  hasWorkExperienceInASS: true
  workExperienceYearsInASS: 8-10-years
employment:
  hasJobInNZ: true
  hourlyRate: "60"
  workType: full-time
partner:
  hasQualification: true
  qualificationLevel: level-7-8
`
	s, err := ParseState([]byte(doc))
	if err != nil {
		t.Fatalf("ParseState: %v", err)
	}
	if got := s.Identity.DateOfBirth; got != NewDate(1994, time.June, 15) {
		t.Errorf("dob = %s", got)
	}
	if s.Qualification.RecognisedLevel != PostgradTwoYearsPlus {
		t.Errorf("recognised = %s", s.Qualification.RecognisedLevel)
	}
	if s.WorkExperience.WorkExperienceYearsInASS != Experience8To10Years {
		t.Errorf("ASS years = %s", s.WorkExperience.WorkExperienceYearsInASS)
	}
	if s.Employment.HourlyRate == nil || s.Employment.HourlyRate.String() != "60" {
		t.Errorf("hourly rate = %v", s.Employment.HourlyRate)
	}
	if s.Employment.WorkType != FullTime {
		t.Errorf("work type = %s", s.Employment.WorkType)
	}
	if s.Partner.QualificationLevel != Level7To8 {
		t.Errorf("partner level = %s", s.Partner.QualificationLevel)
	}
}

func TestParseStateJSONIndices(t *testing.T) {
	doc := `{"qualification":{"qualificationLevel":2,"hasQualificationInNZ":false,"recognisedLevel":-1},
	         "workExperience":{"workExperienceYears":0,"workExperienceYearsInASS":7}}`
	s, err := ParseState([]byte(doc))
	if err != nil {
		t.Fatalf("ParseState: %v", err)
	}
	if s.Qualification.QualificationLevel != Level9To10 {
		t.Errorf("level = %s", s.Qualification.QualificationLevel)
	}
	if s.Qualification.RecognisedLevel != RecognisedUnset {
		t.Errorf("recognised = %s", s.Qualification.RecognisedLevel)
	}
	if s.WorkExperience.WorkExperienceYears != Experience2To4Years {
		t.Errorf("years = %s", s.WorkExperience.WorkExperienceYears)
	}
	// Out of range indices survive decoding.
	if v := s.WorkExperience.WorkExperienceYearsInASS; v.Valid() || v != ExperienceBand(8) || v.String() != "7" {
		t.Errorf("ASS years = %s valid=%v", v, v.Valid())
	}
	if s.Identity != nil || s.Employment != nil {
		t.Error("absent categories should stay nil")
	}
}

func TestParseStateRejectsUnknownFields(t *testing.T) {
	_, err := ParseState([]byte("identity:\n  dateOfBrith: 1990-01-01\n"))
	if err == nil {
		t.Fatal("expected error for misspelled field")
	}
}

func TestParseStateEmpty(t *testing.T) {
	s, err := ParseState(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Equal(Empty()) {
		t.Errorf("got %+v", s)
	}
}

func TestParseStateBadEnum(t *testing.T) {
	_, err := ParseState([]byte("partner:\n  qualificationLevel: doctorate\n"))
	if err == nil || !strings.Contains(err.Error(), "qualification level") {
		t.Errorf("err = %v", err)
	}
}

func TestDecodeStep(t *testing.T) {
	c, err := DecodeStep(StepEmployment, []byte(`{"hasJobOfferInNZ":true,"workType":"contract","hourlyRate":"48.50"}`))
	if err != nil {
		t.Fatalf("DecodeStep: %v", err)
	}
	e, ok := c.(Employment)
	if !ok {
		t.Fatalf("got %T", c)
	}
	if !e.HasJobOfferInNZ || e.WorkType != Contract || e.HourlyRate.String() != "48.5" {
		t.Errorf("employment = %+v", e)
	}

	if _, err := DecodeStep("spouse", []byte("{}")); err == nil {
		t.Error("expected error for unknown step")
	}
}

func TestJSONRoundTripUsesNames(t *testing.T) {
	s := Empty().
		SetIdentity(Identity{DateOfBirth: NewDate(1980, time.December, 1)}).
		SetPartner(Partner{HasQualification: true, QualificationLevel: Level3To6})
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"dateOfBirth":"1980-12-01"`, `"qualificationLevel":"level-3-6"`, `"isFinal":false`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("missing %s in %s", want, data)
		}
	}
	back, err := ParseState(data)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(s) {
		t.Errorf("round trip changed state: %+v", back)
	}
}

func TestParseEnums(t *testing.T) {
	tests := []struct {
		in   string
		want ExperienceBand
		err  bool
	}{
		{"10-plus-years", Experience10PlusYears, false},
		{" 2-4-YEARS ", Experience2To4Years, false},
		{"1", Experience4To6Years, false},
		{"-1", ExperienceUnset, false},
		{"none", ExperienceUnset, false},
		{"", ExperienceUnset, false},
		{"twelve", ExperienceUnset, true},
	}
	for _, tt := range tests {
		got, err := ParseExperienceBand(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseExperienceBand(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExperienceBand(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
	if w, err := ParseWorkType("casual"); err != nil || w != Casual {
		t.Errorf("ParseWorkType = %s, %v", w, err)
	}
	if len(RecognisedLevelNames()) != 5 {
		t.Errorf("recognised names = %v", RecognisedLevelNames())
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("15/06/1990"); err == nil {
		t.Error("expected error for non-ISO date")
	}
	d, err := ParseDate("1990-06-15T23:00:00+12:00")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "1990-06-15" {
		t.Errorf("got %s", d)
	}
}
