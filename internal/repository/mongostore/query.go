package mongostore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/forgo/tours/api/internal/database"
	"github.com/forgo/tours/api/internal/query"
)

// collectionSchema describes how API fields map onto a collection
type collectionSchema struct {
	// reference fields hold ObjectIDs
	refs map[string]bool
	// datetime fields get string values parsed into time.Time
	datetimes map[string]bool
}

var tourSchema = collectionSchema{
	refs:      map[string]bool{"_id": true, "guides": true},
	datetimes: map[string]bool{"createdAt": true, "startDates": true},
}

var userSchema = collectionSchema{
	refs:      map[string]bool{"_id": true},
	datetimes: map[string]bool{"createdAt": true, "passwordChangedAt": true},
}

var reviewSchema = collectionSchema{
	refs:      map[string]bool{"_id": true, "tour": true, "user": true},
	datetimes: map[string]bool{"createdAt": true},
}

var mongoOps = map[query.Operator]string{
	query.OpEq:  "$eq",
	query.OpGt:  "$gt",
	query.OpGte: "$gte",
	query.OpLt:  "$lt",
	query.OpLte: "$lte",
	query.OpIn:  "$in",
}

func storageField(f string) string {
	if f == "id" {
		return "_id"
	}
	return f
}

// findQuery is a translated query
type findQuery struct {
	Filter  bson.D
	Options *options.FindOptions
}

// buildFind translates q into a filter document and find options
func buildFind(schema collectionSchema, q query.Query) (*findQuery, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q = q.Map(storageField)

	filter, err := schema.filter(q.Conditions)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if len(q.Sort) > 0 {
		sort := bson.D{}
		for _, s := range q.Sort {
			dir := 1
			if s.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: s.Field, Value: dir})
		}
		opts.SetSort(sort)
	}
	if proj := projection(q.Fields); proj != nil {
		opts.SetProjection(proj)
	}
	if q.Limit > 0 {
		opts.SetSkip(int64(q.Skip))
		opts.SetLimit(int64(q.Limit))
	}

	return &findQuery{Filter: filter, Options: opts}, nil
}

// filter merges conditions on the same field into one operator document so
// price[gte] and price[lt] both apply.
func (s collectionSchema) filter(conds []query.Condition) (bson.D, error) {
	order := []string{}
	ops := map[string]bson.D{}

	for _, c := range conds {
		value, err := s.value(c.Field, c.Value)
		if err != nil {
			return nil, err
		}
		if _, seen := ops[c.Field]; !seen {
			order = append(order, c.Field)
		}
		ops[c.Field] = append(ops[c.Field], bson.E{Key: mongoOps[c.Op], Value: value})
	}

	filter := bson.D{}
	for _, f := range order {
		filter = append(filter, bson.E{Key: f, Value: ops[f]})
	}
	return filter, nil
}

func (s collectionSchema) value(field string, v interface{}) (interface{}, error) {
	if items, ok := v.([]interface{}); ok {
		out := bson.A{}
		for _, item := range items {
			converted, err := s.value(field, item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	}

	if s.refs[field] {
		hex := fmt.Sprint(v)
		oid, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, &database.CastError{Value: hex}
		}
		return oid, nil
	}
	if s.datetimes[field] {
		if t, ok := query.TimeValue(v); ok {
			return t, nil
		}
	}
	return v, nil
}

func projection(p query.Projection) bson.D {
	if len(p.Include) > 0 {
		proj := bson.D{}
		for _, f := range p.Include {
			proj = append(proj, bson.E{Key: f, Value: 1})
		}
		return proj
	}
	if len(p.Exclude) > 0 {
		proj := bson.D{}
		for _, f := range p.Exclude {
			if f == "_id" {
				continue
			}
			proj = append(proj, bson.E{Key: f, Value: 0})
		}
		return proj
	}
	return nil
}

// objectID parses an API id into an ObjectID
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, &database.CastError{Value: id}
	}
	return oid, nil
}

func objectIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := objectID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

func hexIDs(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		out = append(out, oid.Hex())
	}
	return out
}
