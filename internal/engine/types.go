package engine

import "time"

// Category identifies one scored section of the questionnaire.
type Category string

const (
	CategoryIdentity       Category = "IDENTITY"
	CategoryQualification  Category = "QUALIFICATION"
	CategoryWorkExperience Category = "WORK_EXPERIENCE"
	CategoryEmployment     Category = "EMPLOYMENT"
	CategoryPartner        Category = "PARTNER"
)

// Categories returns the categories in result order.
func Categories() []Category {
	return []Category{
		CategoryIdentity,
		CategoryQualification,
		CategoryWorkExperience,
		CategoryEmployment,
		CategoryPartner,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryIdentity, CategoryQualification, CategoryWorkExperience, CategoryEmployment, CategoryPartner:
		return true
	}
	return false
}

// Component is one sub-score inside a category.
type Component struct {
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
	Points int    `json:"points"`
}

// ResultItem is the score for one category.
type ResultItem struct {
	Category  Category    `json:"category"`
	Label     string      `json:"label"`
	Points    int         `json:"points"`
	Breakdown []Component `json:"breakdown,omitempty"`
}

// Anomaly records an input the rule table could not price. The affected
// component scores zero.
type Anomaly struct {
	Category Category `json:"category"`
	Field    string   `json:"field"`
	Value    string   `json:"value"`
	Reason   string   `json:"reason"`
}

func (a Anomaly) String() string {
	return string(a.Category) + "." + a.Field + "=" + a.Value + ": " + a.Reason
}

// ResultSet is the outcome of one evaluation.
type ResultSet struct {
	Items              []ResultItem `json:"items"`
	Total              int          `json:"total"`
	RuleTable          string       `json:"ruleTable"`
	RuleVersion        int          `json:"ruleVersion"`
	SelectionThreshold int          `json:"selectionThreshold"`
	EvaluatedAt        time.Time    `json:"evaluatedAt"`
	Anomalies          []Anomaly    `json:"anomalies,omitempty"`
}

// MeetsThreshold reports whether the total reaches the table's selection
// threshold.
func (rs ResultSet) MeetsThreshold() bool {
	return rs.Total >= rs.SelectionThreshold
}

// Item returns the item for c.
func (rs ResultSet) Item(c Category) (ResultItem, bool) {
	for _, it := range rs.Items {
		if it.Category == c {
			return it, true
		}
	}
	return ResultItem{}, false
}

// TotalOf sums the points of items.
func TotalOf(items []ResultItem) int {
	total := 0
	for _, it := range items {
		total += it.Points
	}
	return total
}
