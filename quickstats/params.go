package quickstats

import (
	"fmt"
	"slices"
	"strings"
)

// Parameter is a QuickStats query column.
type Parameter string

var parameters = []Parameter{
	"source_desc", "sector_desc", "group_desc", "commodity_desc", "class_desc",
	"prodn_practice_desc", "util_practice_desc", "statisticcat_desc", "unit_desc",
	"short_desc", "domain_desc", "domaincat_desc", "agg_level_desc",
	"state_ansi", "state_fips_code", "state_alpha", "state_name",
	"asd_code", "asd_desc", "county_ansi", "county_code", "county_name",
	"region_desc", "zip_5", "watershed_code", "watershed_desc",
	"congr_district_code", "country_code", "country_name", "location_desc",
	"year", "freq_desc", "begin_code", "end_code", "reference_period_desc",
	"week_ending", "load_time",
}

// Parameters lists every queryable parameter in API documentation order.
func Parameters() []Parameter {
	return slices.Clone(parameters)
}

// ParseParameter validates s.
func ParseParameter(s string) (Parameter, error) {
	p := Parameter(strings.TrimSpace(s))
	if !slices.Contains(parameters, p) {
		return "", fmt.Errorf("unknown parameter %q", s)
	}
	return p, nil
}

// Operator is a condition suffix. The empty operator means equality.
type Operator string

const (
	OpEqual   Operator = ""
	OpLE      Operator = "__LE"
	OpLT      Operator = "__LT"
	OpGT      Operator = "__GT"
	OpGE      Operator = "__GE"
	OpLike    Operator = "__LIKE"
	OpNotLike Operator = "__NOT_LIKE"
	OpNE      Operator = "__NE"
)

var operators = []Operator{OpEqual, OpLE, OpLT, OpGT, OpGE, OpLike, OpNotLike, OpNE}

// Condition filters a query: Field Operator Value.
type Condition struct {
	Field    string
	Operator Operator
	Value    string
}

// Key is the query string key, the field followed by its operator.
func (c Condition) Key() string {
	return c.Field + string(c.Operator)
}

// ParseCondition reads a "field;operator;value" token. Tokens that do not
// have exactly three parts are not conditions and report false.
func ParseCondition(token string) (Condition, bool, error) {
	parts := strings.Split(token, ";")
	if len(parts) != 3 {
		return Condition{}, false, nil
	}
	c := Condition{
		Field:    strings.TrimSpace(parts[0]),
		Operator: Operator(strings.ToUpper(strings.TrimSpace(parts[1]))),
		Value:    parts[2],
	}
	if c.Field == "" {
		return Condition{}, false, fmt.Errorf("condition %q: empty field", token)
	}
	if !slices.Contains(operators, c.Operator) {
		return Condition{}, false, fmt.Errorf("condition %q: unknown operator %q", token, parts[1])
	}
	return c, true, nil
}

// ParseConditions parses every token, skipping malformed ones.
func ParseConditions(tokens []string) ([]Condition, error) {
	var out []Condition
	for _, tok := range tokens {
		c, ok, err := ParseCondition(tok)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}
