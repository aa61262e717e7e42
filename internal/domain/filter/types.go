// Package filter describes ad-hoc list conditions passed in the "filter" query parameter.
package filter

// ComparisonType names a comparison.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	LessOrEqual    ComparisonType = "lte"
	Greater        ComparisonType = "gt"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains"  // ILIKE %val%
	NotContains    ComparisonType = "ncontains" // NOT ILIKE %val%
	IsNull         ComparisonType = "null"
	IsNotNull      ComparisonType = "not_null"
)

// Item is one condition.
type Item struct {
	Field    string         `json:"field"` // column name (snake_case)
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}

// Valid reports whether op is a known comparison.
func (op ComparisonType) Valid() bool {
	switch op {
	case Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual,
		InList, NotInList, Contains, NotContains, IsNull, IsNotNull:
		return true
	}
	return false
}
