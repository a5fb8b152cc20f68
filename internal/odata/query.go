package odata

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is a pure, immutable value describing one OData request against a
// single entity collection. Every With* method returns a new Query; none
// mutate the receiver, so a Query can be safely shared and branched.
type Query struct {
	entity  string
	selects []string
	filter  *Filter
	orderBy []OrderBy
	expands []Expand
	top     *int
	count   bool
}

// OrderBy is one $orderby term.
type OrderBy struct {
	Attribute  string
	Descending bool
}

// Expand is one $expand navigation property, optionally with its own nested
// select/filter.
type Expand struct {
	NavigationProperty string
	Select             []string
	Filter             *Filter
}

// New starts a Query against the given singular or plural entity name; the
// caller (internal/operation, through its PluralResolver) resolves the plural
// collection name before building the final URL.
func New(entity string) Query {
	return Query{entity: entity}
}

func (q Query) clone() Query {
	cp := q
	cp.selects = append([]string(nil), q.selects...)
	cp.orderBy = append([]OrderBy(nil), q.orderBy...)
	cp.expands = append([]Expand(nil), q.expands...)
	if q.filter != nil {
		f := q.filter.Clone()
		cp.filter = &f
	}
	if q.top != nil {
		t := *q.top
		cp.top = &t
	}
	return cp
}

func (q Query) WithSelect(attrs ...string) Query {
	cp := q.clone()
	cp.selects = append(cp.selects, attrs...)
	return cp
}

func (q Query) WithFilter(f Filter) Query {
	cp := q.clone()
	cp.filter = &f
	return cp
}

func (q Query) WithOrderBy(attr string, descending bool) Query {
	cp := q.clone()
	cp.orderBy = append(cp.orderBy, OrderBy{Attribute: attr, Descending: descending})
	return cp
}

func (q Query) WithExpand(e Expand) Query {
	cp := q.clone()
	cp.expands = append(cp.expands, e)
	return cp
}

func (q Query) WithTop(n int) Query {
	cp := q.clone()
	cp.top = &n
	return cp
}

func (q Query) WithCount(enabled bool) Query {
	cp := q.clone()
	cp.count = enabled
	return cp
}

func (q Query) Entity() string { return q.entity }

// URL builds the absolute request URL against the given collection base
// (e.g. "https://org.crm.dynamics.com/api/data/v9.2/accounts"). $skip is
// never emitted — the upstream service does not support it; pagination is
// always link-driven (see Result.NextPage).
func (q Query) URL(collectionBase string) string {
	values := url.Values{}

	if len(q.selects) > 0 {
		values.Set("$select", strings.Join(q.selects, ","))
	}
	if q.filter != nil {
		if s := q.filter.String(); s != "" {
			values.Set("$filter", s)
		}
	}
	if len(q.orderBy) > 0 {
		terms := make([]string, len(q.orderBy))
		for i, ob := range q.orderBy {
			if ob.Descending {
				terms[i] = ob.Attribute + " desc"
			} else {
				terms[i] = ob.Attribute
			}
		}
		values.Set("$orderby", strings.Join(terms, ","))
	}
	if len(q.expands) > 0 {
		terms := make([]string, len(q.expands))
		for i, e := range q.expands {
			terms[i] = expandTerm(e)
		}
		values.Set("$expand", strings.Join(terms, ","))
	}
	if q.top != nil {
		values.Set("$top", strconv.Itoa(*q.top))
	}
	if q.count {
		values.Set("$count", "true")
	}

	if len(values) == 0 {
		return collectionBase
	}
	return collectionBase + "?" + values.Encode()
}

func expandTerm(e Expand) string {
	if len(e.Select) == 0 && e.Filter == nil {
		return e.NavigationProperty
	}
	inner := url.Values{}
	if len(e.Select) > 0 {
		inner.Set("$select", strings.Join(e.Select, ","))
	}
	if e.Filter != nil {
		if s := e.Filter.String(); s != "" {
			inner.Set("$filter", s)
		}
	}
	return e.NavigationProperty + "(" + inner.Encode() + ")"
}
