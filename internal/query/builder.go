package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Reserved query-string keys consumed by Sort, Project and Paginate.
const (
	KeyPage   = "page"
	KeySort   = "sort"
	KeyLimit  = "limit"
	KeyFields = "fields"
)

var reservedKeys = map[string]bool{
	KeyPage:   true,
	KeySort:   true,
	KeyLimit:  true,
	KeyFields: true,
}

var comparisonOps = map[string]Operator{
	"gte": OpGte,
	"gt":  OpGt,
	"lte": OpLte,
	"lt":  OpLt,
}

// Builder shapes a Query from request parameters. Each step is independent
// and returns the builder so steps can be chained:
//
//	q := query.New(base, r.URL.Query()).Filter().Sort().Project().Paginate().Query()
type Builder struct {
	query  Query
	values url.Values
}

// New starts a builder over a base query and the raw parameters.
func New(base Query, values url.Values) *Builder {
	if values == nil {
		values = url.Values{}
	}
	return &Builder{query: base, values: values}
}

// FromValues runs filter, sort, project and paginate over values.
func FromValues(base Query, values url.Values) Query {
	return New(base, values).Filter().Sort().Project().Paginate().Query()
}

// Query returns the composed query.
func (b *Builder) Query() Query {
	return b.query
}

// Filter turns every non-reserved parameter into a condition. Keys of the
// form field[op] with op in gte, gt, lte, lt become comparisons; anything
// else is kept as a literal equality on the key as written.
func (b *Builder) Filter() *Builder {
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		if !reservedKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := b.values[key]
		if len(vals) == 0 {
			continue
		}

		field, op := splitOperator(key)
		if op == OpEq && len(vals) > 1 {
			items := make([]interface{}, 0, len(vals))
			for _, v := range vals {
				items = append(items, coerce(v))
			}
			b.query.Conditions = append(b.query.Conditions, Condition{Field: field, Op: OpIn, Value: items})
			continue
		}

		b.query.Conditions = append(b.query.Conditions, Condition{Field: field, Op: op, Value: coerce(vals[0])})
	}
	return b
}

// Sort applies the comma-separated sort parameter. A leading "-" sorts
// descending. Without a sort parameter results are ordered by creation
// time unless the base query already carries an order.
func (b *Builder) Sort() *Builder {
	raw := b.values.Get(KeySort)
	if raw == "" {
		if len(b.query.Sort) == 0 {
			b.query.Sort = []SortField{{Field: DefaultSortField}}
		}
		return b
	}

	fields := make([]SortField, 0)
	for _, part := range splitList(raw) {
		if strings.HasPrefix(part, "-") {
			fields = append(fields, SortField{Field: strings.TrimPrefix(part, "-"), Desc: true})
			continue
		}
		fields = append(fields, SortField{Field: strings.TrimPrefix(part, "+")})
	}
	if len(fields) > 0 {
		b.query.Sort = fields
	}
	return b
}

// Project applies the comma-separated fields parameter as an inclusion
// list. When every listed field starts with "-" it becomes an exclusion
// list instead. Without it, only the version marker is hidden.
func (b *Builder) Project() *Builder {
	raw := b.values.Get(KeyFields)
	if raw == "" {
		if b.query.Fields.IsZero() {
			b.query.Fields = Projection{Exclude: []string{VersionField}}
		}
		return b
	}

	parts := splitList(raw)
	exclude := len(parts) > 0
	for _, p := range parts {
		if !strings.HasPrefix(p, "-") {
			exclude = false
			break
		}
	}

	var proj Projection
	for _, p := range parts {
		if exclude {
			proj.Exclude = append(proj.Exclude, strings.TrimPrefix(p, "-"))
		} else {
			proj.Include = append(proj.Include, strings.TrimPrefix(p, "-"))
		}
	}
	if !proj.IsZero() {
		b.query.Fields = proj
	}
	return b
}

// Paginate computes the skip/limit window. Missing, malformed or
// non-positive values fall back to the defaults without error.
func (b *Builder) Paginate() *Builder {
	page := positiveInt(b.values.Get(KeyPage), DefaultPage)

	defaultLimit := DefaultLimit
	if b.query.Limit > 0 {
		defaultLimit = b.query.Limit
	}
	limit := positiveInt(b.values.Get(KeyLimit), defaultLimit)
	if limit > MaxLimit {
		limit = MaxLimit
	}

	b.query.Limit = limit
	b.query.Skip = (page - 1) * limit
	return b
}

// splitOperator splits "price[gte]" into ("price", OpGte). Unknown
// operators leave the key untouched as a literal equality field.
func splitOperator(key string) (string, Operator) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, OpEq
	}
	op, ok := comparisonOps[key[open+1:len(key)-1]]
	if !ok {
		return key, OpEq
	}
	return key[:open], op
}

// coerce turns numeric and boolean literals into typed values so the
// stores compare them as numbers and booleans.
func coerce(v string) interface{} {
	s := strings.TrimSpace(v)
	if s == "" {
		return v
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return float64(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

// positiveInt mirrors parseInt-or-default semantics: a leading integer is
// accepted ("3abc" is 3), anything else or a value below 1 yields def.
func positiveInt(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return def
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil || n < 1 {
		return def
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
