package query

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Operator is a comparison recognized by the store translators.
type Operator string

const (
	OpEq  Operator = "eq"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpIn  Operator = "in"
)

const (
	// DefaultSortField orders results when no sort is requested.
	DefaultSortField = "createdAt"
	// VersionField is the internal version marker hidden by default.
	VersionField = "__v"

	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// ErrInvalidField is returned when a filter, sort or projection names a
// field that is not a dotted identifier path. A single trailing [word]
// suffix is allowed so that unknown operators stay literal keys.
var ErrInvalidField = errors.New("invalid field name")

// ErrHiddenField is returned when a query names a credential field at any
// depth, including through a populated link such as user.passwordHash.
var ErrHiddenField = fmt.Errorf("%w: field is not queryable", ErrInvalidField)

// hiddenFields are never filtered, sorted or projected through a query
var hiddenFields = map[string]bool{
	"passwordHash":         true,
	"passwordResetToken":   true,
	"passwordResetExpires": true,
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*(\[[A-Za-z0-9_]*\])?$`)

// Condition constrains a single field.
type Condition struct {
	Field string
	Op    Operator
	Value interface{}
}

// SortField is one key of a multi-key sort.
type SortField struct {
	Field string
	Desc  bool
}

// Projection selects the fields returned for each document. Include wins
// over Exclude when both are set.
type Projection struct {
	Include []string
	Exclude []string
}

// IsZero reports whether the projection selects every field.
func (p Projection) IsZero() bool {
	return len(p.Include) == 0 && len(p.Exclude) == 0
}

// Query is a store-neutral read query. It carries no I/O; translators in
// the repository packages turn it into SurrealQL or BSON.
type Query struct {
	Conditions []Condition
	Sort       []SortField
	Fields     Projection
	Skip       int
	Limit      int
}

// Where appends an equality condition and returns the query for chaining.
func (q Query) Where(field string, value interface{}) Query {
	q.Conditions = append(slices.Clone(q.Conditions), Condition{Field: field, Op: OpEq, Value: value})
	return q
}

// Page returns the 1-based page number implied by Skip and Limit.
func (q Query) Page() int {
	if q.Limit <= 0 {
		return DefaultPage
	}
	return q.Skip/q.Limit + 1
}

// Validate checks every field name used by the query.
func (q Query) Validate() error {
	for _, f := range q.FieldNames() {
		if !ValidField(f) {
			return fmt.Errorf("%w: %q", ErrInvalidField, f)
		}
		if Hidden(f) {
			return fmt.Errorf("%w: %q", ErrHiddenField, f)
		}
	}
	return nil
}

// FieldNames returns every field named by a condition, sort key or
// projection, in that order.
func (q Query) FieldNames() []string {
	names := make([]string, 0, len(q.Conditions)+len(q.Sort)+len(q.Fields.Include)+len(q.Fields.Exclude))
	for _, c := range q.Conditions {
		names = append(names, c.Field)
	}
	for _, s := range q.Sort {
		names = append(names, s.Field)
	}
	names = append(names, q.Fields.Include...)
	return append(names, q.Fields.Exclude...)
}

// Hidden reports whether any segment of the path is a credential field.
// A trailing [word] literal suffix is ignored.
func Hidden(name string) bool {
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	for _, seg := range strings.Split(name, ".") {
		if hiddenFields[seg] {
			return true
		}
	}
	return false
}

// ValidField reports whether name is safe to use as a document field path.
func ValidField(name string) bool {
	return fieldPattern.MatchString(name)
}

// Map applies fn to every field name in the query. Stores use it to rename
// API fields to storage fields (for example id to _id).
func (q Query) Map(fn func(string) string) Query {
	out := Query{Skip: q.Skip, Limit: q.Limit}
	for _, c := range q.Conditions {
		c.Field = fn(c.Field)
		out.Conditions = append(out.Conditions, c)
	}
	for _, s := range q.Sort {
		s.Field = fn(s.Field)
		out.Sort = append(out.Sort, s)
	}
	for _, f := range q.Fields.Include {
		out.Fields.Include = append(out.Fields.Include, fn(f))
	}
	for _, f := range q.Fields.Exclude {
		out.Fields.Exclude = append(out.Fields.Exclude, fn(f))
	}
	return out
}

// TimeValue converts a string condition value that looks like an RFC 3339
// date (or a plain YYYY-MM-DD date) into a time.Time. Stores call it for
// fields they know hold datetimes.
func TimeValue(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
