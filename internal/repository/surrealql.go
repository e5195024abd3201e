package repository

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/forgo/tours/api/internal/query"
)

// tableSchema describes how API fields map onto a SurrealDB table
type tableSchema struct {
	table string
	// datetime fields get their string values cast with <datetime>
	datetimes map[string]bool
	// record link fields and the table they point at
	refs map[string]string
	// array fields are matched by membership rather than equality
	arrays map[string]bool
	// dotted paths that may be followed through a record link; any other
	// path past a link is rejected
	linked map[string]bool
}

var tourSchema = tableSchema{
	table:     tableTour,
	datetimes: map[string]bool{"createdAt": true, "startDates": true},
	refs:      map[string]string{"guides": tableUser},
	arrays:    map[string]bool{"startDates": true, "guides": true, "images": true},
	linked:    map[string]bool{"guides.name": true},
}

var userSchema = tableSchema{
	table:     tableUser,
	datetimes: map[string]bool{"createdAt": true, "passwordChangedAt": true},
}

var reviewSchema = tableSchema{
	table:     tableReview,
	datetimes: map[string]bool{"createdAt": true},
	refs:      map[string]string{"tour": tableTour, "user": tableUser},
	linked:    map[string]bool{"tour.name": true, "user.name": true, "user.photo": true},
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// surrealSelect is a translated query
type surrealSelect struct {
	SQL  string
	Vars map[string]interface{}
}

// buildSelect translates q into a SurrealQL SELECT over the schema table.
// suffix is appended after the ORDER BY (for example a FETCH clause).
func buildSelect(schema tableSchema, q query.Query, suffix string) (*surrealSelect, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	for _, f := range q.FieldNames() {
		if err := schema.checkLink(f); err != nil {
			return nil, err
		}
	}

	vars := map[string]interface{}{}
	var sb strings.Builder

	sb.WriteString("SELECT ")
	sb.WriteString(projection(q.Fields))
	sb.WriteString(" FROM ")
	sb.WriteString(schema.table)

	if where := schema.where(q.Conditions, vars); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if len(q.Sort) > 0 {
		parts := make([]string, 0, len(q.Sort))
		for _, s := range q.Sort {
			dir := "ASC"
			if s.Desc {
				dir = "DESC"
			}
			parts = append(parts, fieldPath(s.Field)+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT $limit START $start")
		vars["limit"] = q.Limit
		vars["start"] = q.Skip
	}

	if suffix != "" {
		sb.WriteString(" ")
		sb.WriteString(suffix)
	}

	return &surrealSelect{SQL: sb.String(), Vars: vars}, nil
}

func projection(p query.Projection) string {
	if len(p.Include) > 0 {
		fields := []string{"id"}
		for _, f := range p.Include {
			if f == "id" {
				continue
			}
			fields = append(fields, fieldPath(f))
		}
		return strings.Join(fields, ", ")
	}

	omit := []string{}
	for _, f := range p.Exclude {
		if f == "id" {
			continue
		}
		omit = append(omit, fieldPath(f))
	}
	if len(omit) == 0 {
		return "*"
	}
	return "* OMIT " + strings.Join(omit, ", ")
}

// checkLink rejects paths that continue past a record link unless the
// schema allows them
func (s tableSchema) checkLink(field string) error {
	head, _, dotted := strings.Cut(field, ".")
	if !dotted {
		return nil
	}
	if _, ok := s.refs[head]; ok && !s.linked[field] {
		return fmt.Errorf("%w: %q", query.ErrInvalidField, field)
	}
	return nil
}

func (s tableSchema) where(conds []query.Condition, vars map[string]interface{}) string {
	clauses := make([]string, 0, len(conds))
	for i, c := range conds {
		name := fmt.Sprintf("f%d", i)
		clause, value := s.condition(c, "$"+name)
		vars[name] = value
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, " AND ")
}

// condition renders one condition against the placeholder and returns the
// value to bind.
func (s tableSchema) condition(c query.Condition, placeholder string) (string, interface{}) {
	value := c.Value
	rhs := placeholder

	if c.Field == "id" {
		return s.refCondition("id", s.table, c, placeholder)
	}
	if table, ok := s.refs[c.Field]; ok {
		return s.refCondition(fieldPath(c.Field), table, c, placeholder)
	}

	if s.datetimes[c.Field] {
		if converted, ok := datetimeValue(value); ok {
			value = converted
			if c.Op == query.OpIn {
				rhs = "<array<datetime>>" + placeholder
			} else {
				rhs = "<datetime>" + placeholder
			}
		}
	}

	field := fieldPath(c.Field)
	if s.arrays[c.Field] {
		switch c.Op {
		case query.OpEq:
			return fmt.Sprintf("%s CONTAINS %s", field, rhs), value
		case query.OpIn:
			return fmt.Sprintf("%s CONTAINSANY %s", field, rhs), value
		case query.OpGt, query.OpGte:
			// Some element satisfies the comparison
			return fmt.Sprintf("array::max(%s) %s %s", field, comparison(c.Op), rhs), value
		default:
			return fmt.Sprintf("array::min(%s) %s %s", field, comparison(c.Op), rhs), value
		}
	}

	if c.Op == query.OpIn {
		return fmt.Sprintf("%s IN %s", field, rhs), value
	}
	return fmt.Sprintf("%s %s %s", field, comparison(c.Op), rhs), value
}

// refCondition compares a record link against bare API keys
func (s tableSchema) refCondition(field, table string, c query.Condition, placeholder string) (string, interface{}) {
	thing := fmt.Sprintf("type::thing(%q, %s)", table, placeholder)

	if c.Op == query.OpIn {
		keys := make([]string, 0)
		if items, ok := c.Value.([]interface{}); ok {
			for _, item := range items {
				keys = append(keys, bareKey(table, item))
			}
		}
		mapped := fmt.Sprintf("%s.map(|$k| type::thing(%q, $k))", placeholder, table)
		if s.arrays[c.Field] {
			return fmt.Sprintf("%s CONTAINSANY %s", field, mapped), keys
		}
		return fmt.Sprintf("%s IN %s", field, mapped), keys
	}

	key := bareKey(table, c.Value)
	if s.arrays[c.Field] {
		return fmt.Sprintf("%s CONTAINS %s", field, thing), key
	}
	return fmt.Sprintf("%s %s %s", field, comparison(c.Op), thing), key
}

func bareKey(table string, v interface{}) string {
	key := fmt.Sprint(v)
	if f, ok := v.(float64); ok {
		key = fmt.Sprintf("%.0f", f)
	}
	return strings.TrimPrefix(key, table+":")
}

// datetimeValue formats date strings for a <datetime> cast. It reports
// false when any value is not a date, in which case no cast is applied.
func datetimeValue(v interface{}) (interface{}, bool) {
	if items, ok := v.([]interface{}); ok {
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			converted, ok := datetimeValue(item)
			if !ok {
				return v, false
			}
			out = append(out, converted)
		}
		return out, true
	}
	if t, ok := query.TimeValue(v); ok {
		return t.Format(time.RFC3339Nano), true
	}
	return v, false
}

func comparison(op query.Operator) string {
	switch op {
	case query.OpGt:
		return ">"
	case query.OpGte:
		return ">="
	case query.OpLt:
		return "<"
	case query.OpLte:
		return "<="
	default:
		return "="
	}
}

// fieldPath renders a validated field path, quoting segments that are not
// plain identifiers (literal keys such as price[ne]).
func fieldPath(field string) string {
	segments := strings.Split(field, ".")
	for i, seg := range segments {
		if !plainIdent.MatchString(seg) {
			segments[i] = "`" + seg + "`"
		}
	}
	return strings.Join(segments, ".")
}
