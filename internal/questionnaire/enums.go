package questionnaire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Choice enums are backed by the option's position in the questionnaire
// list, shifted by one so the zero value means "not answered". They encode
// as kebab-case names and decode from either the name or the raw 0-based
// option index used by the mobile client (-1 meaning unset).

// QualificationLevel is the NZQF band of the applicant's highest qualification.
type QualificationLevel int

const (
	QualificationUnset QualificationLevel = iota
	Level3To6
	Level7To8
	Level9To10
)

var qualificationLevels = choices{"level-3-6", "level-7-8", "level-9-10"}

// RecognisedLevel describes how an NZ qualification is recognised.
type RecognisedLevel int

const (
	RecognisedUnset RecognisedLevel = iota
	PostgradTwoYearsPlus
	PostgradOneYearPlus
	BachelorTwoYearsPlus
	RecognisedPre2011
	AnyPre2011TwoYearsPlus
)

var recognisedLevels = choices{
	"postgrad-2y-plus",
	"postgrad-1y-plus",
	"bachelor-2y-plus",
	"recognised-pre-2011",
	"any-pre-2011-2y-plus",
}

// ExperienceBand is a years-of-experience range. The same five bands are
// offered for total skilled experience and for experience in an area of
// absolute skills shortage.
type ExperienceBand int

const (
	ExperienceUnset ExperienceBand = iota
	Experience2To4Years
	Experience4To6Years
	Experience6To8Years
	Experience8To10Years
	Experience10PlusYears
)

var experienceBands = choices{"2-4-years", "4-6-years", "6-8-years", "8-10-years", "10-plus-years"}

// WorkType is the kind of skilled employment held or offered.
type WorkType int

const (
	WorkTypeUnset WorkType = iota
	FullTime
	PartTime
	Contract
	Casual
)

var workTypes = choices{"full-time", "part-time", "contract", "casual"}

func (v QualificationLevel) String() string { return qualificationLevels.name(int(v)) }
func (v QualificationLevel) Valid() bool    { return qualificationLevels.valid(int(v)) }

func (v RecognisedLevel) String() string { return recognisedLevels.name(int(v)) }
func (v RecognisedLevel) Valid() bool    { return recognisedLevels.valid(int(v)) }

func (v ExperienceBand) String() string { return experienceBands.name(int(v)) }
func (v ExperienceBand) Valid() bool    { return experienceBands.valid(int(v)) }

func (v WorkType) String() string { return workTypes.name(int(v)) }
func (v WorkType) Valid() bool    { return workTypes.valid(int(v)) }

// QualificationLevelNames returns the option names in questionnaire order.
// The other *Names functions follow the same contract.
func QualificationLevelNames() []string { return qualificationLevels.list() }
func RecognisedLevelNames() []string    { return recognisedLevels.list() }
func ExperienceBandNames() []string     { return experienceBands.list() }
func WorkTypeNames() []string           { return workTypes.list() }

func (v QualificationLevel) MarshalText() ([]byte, error) { return []byte(v.String()), nil }
func (v RecognisedLevel) MarshalText() ([]byte, error)    { return []byte(v.String()), nil }
func (v ExperienceBand) MarshalText() ([]byte, error)     { return []byte(v.String()), nil }
func (v WorkType) MarshalText() ([]byte, error)           { return []byte(v.String()), nil }

func (v *QualificationLevel) UnmarshalJSON(data []byte) error {
	n, err := qualificationLevels.decodeJSON("qualification level", data)
	*v = QualificationLevel(n)
	return err
}

func (v *RecognisedLevel) UnmarshalJSON(data []byte) error {
	n, err := recognisedLevels.decodeJSON("recognised level", data)
	*v = RecognisedLevel(n)
	return err
}

func (v *ExperienceBand) UnmarshalJSON(data []byte) error {
	n, err := experienceBands.decodeJSON("experience band", data)
	*v = ExperienceBand(n)
	return err
}

func (v *WorkType) UnmarshalJSON(data []byte) error {
	n, err := workTypes.decodeJSON("work type", data)
	*v = WorkType(n)
	return err
}

func (v *QualificationLevel) UnmarshalYAML(node *yaml.Node) error {
	n, err := qualificationLevels.decodeYAML("qualification level", node)
	*v = QualificationLevel(n)
	return err
}

func (v *RecognisedLevel) UnmarshalYAML(node *yaml.Node) error {
	n, err := recognisedLevels.decodeYAML("recognised level", node)
	*v = RecognisedLevel(n)
	return err
}

func (v *ExperienceBand) UnmarshalYAML(node *yaml.Node) error {
	n, err := experienceBands.decodeYAML("experience band", node)
	*v = ExperienceBand(n)
	return err
}

func (v *WorkType) UnmarshalYAML(node *yaml.Node) error {
	n, err := workTypes.decodeYAML("work type", node)
	*v = WorkType(n)
	return err
}

// ParseQualificationLevel parses a name or 0-based option index.
func ParseQualificationLevel(s string) (QualificationLevel, error) {
	n, err := qualificationLevels.parse("qualification level", s)
	return QualificationLevel(n), err
}

// ParseRecognisedLevel parses a name or 0-based option index.
func ParseRecognisedLevel(s string) (RecognisedLevel, error) {
	n, err := recognisedLevels.parse("recognised level", s)
	return RecognisedLevel(n), err
}

// ParseExperienceBand parses a name or 0-based option index.
func ParseExperienceBand(s string) (ExperienceBand, error) {
	n, err := experienceBands.parse("experience band", s)
	return ExperienceBand(n), err
}

// ParseWorkType parses a name or 0-based option index.
func ParseWorkType(s string) (WorkType, error) {
	n, err := workTypes.parse("work type", s)
	return WorkType(n), err
}

type choices []string

const unsetName = "none"

func (c choices) name(v int) string {
	switch {
	case v == 0:
		return unsetName
	case v > 0 && v <= len(c):
		return c[v-1]
	}
	// Out of range values keep their raw index so they survive a round trip.
	return strconv.Itoa(v - 1)
}

func (c choices) valid(v int) bool {
	return v >= 1 && v <= len(c)
}

func (c choices) list() []string {
	out := make([]string, len(c))
	copy(out, c)
	return out
}

func (c choices) parse(kind, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == unsetName {
		return 0, nil
	}
	for i, n := range c {
		if n == s {
			return i + 1, nil
		}
	}
	if idx, err := strconv.Atoi(s); err == nil {
		return idx + 1, nil
	}
	return 0, fmt.Errorf("questionnaire: unknown %s %q", kind, s)
}

func (c choices) decodeJSON(kind string, data []byte) (int, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return 0, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, fmt.Errorf("questionnaire: decode %s: %w", kind, err)
		}
		return c.parse(kind, s)
	}
	var idx int
	if err := json.Unmarshal(data, &idx); err != nil {
		return 0, fmt.Errorf("questionnaire: decode %s: %w", kind, err)
	}
	return idx + 1, nil
}

func (c choices) decodeYAML(kind string, node *yaml.Node) (int, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("questionnaire: %s must be a scalar (line %d)", kind, node.Line)
	}
	if node.Tag == "!!null" {
		return 0, nil
	}
	return c.parse(kind, node.Value)
}
