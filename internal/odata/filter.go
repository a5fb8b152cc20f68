// Package odata implements the OData v4 query model used against the
// Dynamics 365 Web API: a composable Filter/Query value type, URL
// serialization, and link-driven pagination. Parsing of request/response
// bodies is deliberately shallow — the Dynamics service itself is an
// external collaborator, not something this package talks to directly.
package odata

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterValueKind discriminates FilterValue's tagged union.
type FilterValueKind int

const (
	ValueString FilterValueKind = iota
	ValueInteger
	ValueFloat
	ValueBool
	ValueNull
)

// FilterValue is a primitive OData literal.
type FilterValue struct {
	Kind FilterValueKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
}

func String(s string) FilterValue  { return FilterValue{Kind: ValueString, Str: s} }
func Integer(i int64) FilterValue  { return FilterValue{Kind: ValueInteger, Int: i} }
func Float(f float64) FilterValue  { return FilterValue{Kind: ValueFloat, Flt: f} }
func Bool(b bool) FilterValue      { return FilterValue{Kind: ValueBool, Bool: b} }
func Null() FilterValue            { return FilterValue{Kind: ValueNull} }

// Literal renders the value as an OData literal. String values are quoted
// with single quotes, doubling any embedded single quote per the OData
// escaping rule (O'Connor -> 'O''Connor').
func (v FilterValue) Literal() string {
	switch v.Kind {
	case ValueString:
		return "'" + strings.ReplaceAll(v.Str, "'", "''") + "'"
	case ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueNull:
		return "null"
	default:
		return "null"
	}
}

// FilterOp discriminates the comparison-operator Filter variants.
type FilterOp int

const (
	OpEq FilterOp = iota
	OpNe
	OpGt
	OpGe
	OpLt
	OpLe
	OpContains
	OpStartsWith
	OpEndsWith
)

var opFuncName = map[FilterOp]string{
	OpContains:   "contains",
	OpStartsWith: "startswith",
	OpEndsWith:   "endswith",
}

var opSymbol = map[FilterOp]string{
	OpEq: "eq", OpNe: "ne", OpGt: "gt", OpGe: "ge", OpLt: "lt", OpLe: "le",
}

// FilterKind discriminates the Filter recursive tagged union.
type FilterKind int

const (
	FilterCompare FilterKind = iota
	FilterAnd
	FilterOr
	FilterNot
)

// Filter is a recursive OData $filter expression tree. Build it with the
// Eq/Ne/.../And/Or/Not constructors below rather than the struct literal.
type Filter struct {
	Kind FilterKind

	// FilterCompare
	Attribute string
	Op        FilterOp
	Value     FilterValue

	// FilterAnd / FilterOr
	Children []Filter

	// FilterNot
	Inner *Filter
}

func Eq(attr string, v FilterValue) Filter         { return compare(attr, OpEq, v) }
func Ne(attr string, v FilterValue) Filter         { return compare(attr, OpNe, v) }
func Gt(attr string, v FilterValue) Filter         { return compare(attr, OpGt, v) }
func Ge(attr string, v FilterValue) Filter         { return compare(attr, OpGe, v) }
func Lt(attr string, v FilterValue) Filter         { return compare(attr, OpLt, v) }
func Le(attr string, v FilterValue) Filter         { return compare(attr, OpLe, v) }
func Contains(attr string, v FilterValue) Filter   { return compare(attr, OpContains, v) }
func StartsWith(attr string, v FilterValue) Filter { return compare(attr, OpStartsWith, v) }
func EndsWith(attr string, v FilterValue) Filter   { return compare(attr, OpEndsWith, v) }

func compare(attr string, op FilterOp, v FilterValue) Filter {
	return Filter{Kind: FilterCompare, Attribute: attr, Op: op, Value: v}
}

func And(filters ...Filter) Filter { return Filter{Kind: FilterAnd, Children: filters} }
func Or(filters ...Filter) Filter  { return Filter{Kind: FilterOr, Children: filters} }
func Not(f Filter) Filter          { return Filter{Kind: FilterNot, Inner: &f} }

// Clone returns a deep copy, since Filters are meant to be shared and
// recomposed (Query.WithFilter etc. never mutate their receiver).
func (f Filter) Clone() Filter {
	cp := f
	if len(f.Children) > 0 {
		cp.Children = make([]Filter, len(f.Children))
		for i, c := range f.Children {
			cp.Children[i] = c.Clone()
		}
	}
	if f.Inner != nil {
		inner := f.Inner.Clone()
		cp.Inner = &inner
	}
	return cp
}

// String renders the filter as an OData $filter expression fragment
// (unescaped; URL percent-encoding happens once, at Query.URL).
func (f Filter) String() string {
	switch f.Kind {
	case FilterCompare:
		if name, ok := opFuncName[f.Op]; ok {
			return fmt.Sprintf("%s(%s,%s)", name, f.Attribute, f.Value.Literal())
		}
		return fmt.Sprintf("%s %s %s", f.Attribute, opSymbol[f.Op], f.Value.Literal())
	case FilterAnd:
		return joinLogical(f.Children, "and")
	case FilterOr:
		return joinLogical(f.Children, "or")
	case FilterNot:
		if f.Inner == nil {
			return ""
		}
		return "not (" + f.Inner.String() + ")"
	default:
		return ""
	}
}

func joinLogical(children []Filter, op string) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		s := c.String()
		if s == "" {
			continue
		}
		if c.Kind == FilterAnd || c.Kind == FilterOr {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "+op+" ")
}
