package repository

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/forgo/tours/api/internal/database"
)

// Table names
const (
	tableTour   = "tour"
	tableUser   = "user"
	tableReview = "review"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// recordKey validates an API id for table and returns the bare record key.
// Both "abc" and "tour:abc" address the same record.
func recordKey(table, id string) (string, error) {
	key := strings.TrimPrefix(id, table+":")
	if !keyPattern.MatchString(key) {
		return "", &database.CastError{Value: id}
	}
	return key, nil
}

// recordKeys validates a list of ids, failing on the first bad one
func recordKeys(table string, ids []string) ([]string, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		key, err := recordKey(table, id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// newRecordKey generates a key that is safe to embed as a string record id
func newRecordKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// convertSurrealID converts a SurrealDB ID (which may be a complex object) to
// the bare record key used in the API.
func convertSurrealID(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		if i := strings.IndexByte(v, ':'); i >= 0 {
			return strings.Trim(v[i+1:], "`⟨⟩")
		}
		return v
	case models.RecordID:
		return fmt.Sprintf("%v", v.ID)
	case *models.RecordID:
		if v != nil {
			return fmt.Sprintf("%v", v.ID)
		}
		return ""
	case map[string]interface{}:
		// Fetched record link
		if inner, ok := v["id"]; ok {
			return convertSurrealID(inner)
		}
	}
	return fmt.Sprintf("%v", id)
}

// duplicateFromError turns a SurrealDB unique index violation into a
// *database.DuplicateError. Index names follow unique_<table>_<field>.
// Example message:
//
//	Database index `unique_user_email` already contains 'a@b.c', with record `user:x`
func duplicateFromError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "already contains") {
		return err
	}

	dup := &database.DuplicateError{Err: err}
	if start := strings.Index(msg, "index `"); start >= 0 {
		rest := msg[start+len("index `"):]
		if end := strings.IndexByte(rest, '`'); end >= 0 {
			dup.Field = indexField(rest[:end])
		}
	}
	if start := strings.Index(msg, "already contains "); start >= 0 {
		rest := msg[start+len("already contains "):]
		if end := strings.Index(rest, ", with record"); end >= 0 {
			rest = rest[:end]
		}
		dup.Value = strings.Trim(rest, `'"[]`)
	}
	return dup
}

func indexField(index string) string {
	parts := strings.SplitN(index, "_", 3)
	if len(parts) == 3 && parts[0] == "unique" {
		return parts[2]
	}
	return index
}

// extractQueryResults extracts the record array of the last statement
func extractQueryResults(result []interface{}) []interface{} {
	if len(result) == 0 {
		return nil
	}
	resp, ok := result[len(result)-1].(map[string]interface{})
	if !ok {
		return nil
	}
	if arr, ok := resp["result"].([]interface{}); ok {
		return arr
	}
	if resp["result"] != nil {
		return []interface{}{resp["result"]}
	}
	return nil
}

// extractRecords returns every map in the last statement's result
func extractRecords(result []interface{}) []map[string]interface{} {
	rows := extractQueryResults(result)
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		if m, ok := row.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// parseTime parses time from various formats
func parseTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC()
		}
	case models.CustomDateTime:
		return t.Time.UTC()
	case *models.CustomDateTime:
		if t != nil {
			return t.Time.UTC()
		}
	}
	return time.Time{}
}

// getString extracts a string value from a map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// getInt extracts an int value from a map
func getInt(m map[string]interface{}, key string) int {
	return toInt(m[key])
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case float32:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case int32:
		return int(n)
	case uint32:
		return int(n)
	}
	return 0
}

// getFloat extracts a float value from a map
func getFloat(m map[string]interface{}, key string) float64 {
	return toFloat(m[key])
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	}
	return float64(toInt(v))
}

// getFloatPtr extracts an optional float value from a map
func getFloatPtr(m map[string]interface{}, key string) *float64 {
	if m[key] == nil {
		return nil
	}
	f := toFloat(m[key])
	return &f
}

// getTime extracts a time value from a map
func getTime(m map[string]interface{}, key string) time.Time {
	return parseTime(m[key])
}

// getTimePtr extracts an optional time value from a map
func getTimePtr(m map[string]interface{}, key string) *time.Time {
	t := parseTime(m[key])
	if t.IsZero() {
		return nil
	}
	return &t
}

// getStringSlice extracts a string slice from a map
func getStringSlice(m map[string]interface{}, key string) []string {
	result := make([]string, 0)
	if v, ok := m[key].([]interface{}); ok {
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
	}
	return result
}

// getTimeSlice extracts a datetime array from a map
func getTimeSlice(m map[string]interface{}, key string) []time.Time {
	result := make([]time.Time, 0)
	if v, ok := m[key].([]interface{}); ok {
		for _, item := range v {
			if t := parseTime(item); !t.IsZero() {
				result = append(result, t)
			}
		}
	}
	return result
}

// getMap extracts a nested object from a map
func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// formatTimes renders datetimes for a <array<datetime>> cast
func formatTimes(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.UTC().Format(time.RFC3339Nano))
	}
	return out
}
