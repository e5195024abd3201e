package database

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// recordingDB captures the last query sent to it
type recordingDB struct {
	query string
	vars  map[string]interface{}
	err   error
}

func (r *recordingDB) Connect(ctx context.Context) error { return nil }
func (r *recordingDB) Close() error                     { return nil }
func (r *recordingDB) Ping(ctx context.Context) error    { return nil }

func (r *recordingDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	r.query = query
	r.vars = vars
	return []interface{}{}, r.err
}

func (r *recordingDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	_, err := r.Query(ctx, query, vars)
	return nil, err
}

func (r *recordingDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	_, err := r.Query(ctx, query, vars)
	return err
}

// ============================================================================
// TxBuilder Tests
// ============================================================================

func TestTxBuilder_NamespacesVariablesPerStatement(t *testing.T) {
	t.Parallel()

	tb := NewTxBuilder()
	first := tb.Add("CREATE review SET tour = $tour", map[string]interface{}{"tour": "a"})
	second := tb.Add("UPDATE tour SET x = 1 WHERE id = $tour", map[string]interface{}{"tour": "b"})

	query, vars := tb.Build()

	if first["tour"] == second["tour"] {
		t.Fatalf("expected distinct names, both got %s", first["tour"])
	}
	if vars[first["tour"]] != "a" || vars[second["tour"]] != "b" {
		t.Errorf("unexpected vars: %v", vars)
	}
	if !strings.HasPrefix(query, "BEGIN TRANSACTION;") || !strings.HasSuffix(query, "COMMIT TRANSACTION;") {
		t.Errorf("query should be wrapped in a transaction, got: %s", query)
	}
}

func TestTxBuilder_DoesNotRenamePrefixOfLongerVariable(t *testing.T) {
	t.Parallel()

	tb := NewTxBuilder()
	mapping := tb.Add("SELECT * FROM review WHERE tour = $tour AND id = $tourId", map[string]interface{}{
		"tour":   "a",
		"tourId": "b",
	})

	query, _ := tb.Build()

	if !strings.Contains(query, "$"+mapping["tour"]+" ") {
		t.Errorf("expected $%s in query: %s", mapping["tour"], query)
	}
	if !strings.Contains(query, "$"+mapping["tourId"]+";") {
		t.Errorf("expected $%s in query: %s", mapping["tourId"], query)
	}
}

func TestTxBuilder_LeavesLetBindingsAlone(t *testing.T) {
	t.Parallel()

	tb := NewTxBuilder()
	tb.Add("LET $stats = (SELECT count() FROM review WHERE tour = $tour GROUP ALL)", map[string]interface{}{"tour": "a"})
	tb.Add("UPDATE $t SET ratingsQuantity = $stats[0].n", map[string]interface{}{"t": "x"})

	query, _ := tb.Build()

	if strings.Count(query, "$stats") != 2 {
		t.Errorf("LET binding should keep its name, got: %s", query)
	}
}

// ============================================================================
// AtomicBatch Tests
// ============================================================================

func TestAtomicBatch_Empty_DoesNothing(t *testing.T) {
	t.Parallel()
	db := &recordingDB{}

	results, err := NewAtomicBatch().Execute(context.Background(), db)

	if err != nil || results != nil {
		t.Errorf("expected nil results and error, got %v, %v", results, err)
	}
	if db.query != "" {
		t.Errorf("expected no query, got %s", db.query)
	}
}

func TestAtomicBatch_SendsSingleTransaction(t *testing.T) {
	t.Parallel()
	db := &recordingDB{}

	batch := NewAtomicBatch().
		Add("CREATE review:x SET rating = $rating", map[string]interface{}{"rating": 5}).
		Add("UPDATE tour:y SET ratingsQuantity += 1", nil)

	if _, err := batch.Execute(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Len() != 2 {
		t.Errorf("expected 2 statements, got %d", batch.Len())
	}
	if strings.Count(db.query, "TRANSACTION") != 2 {
		t.Errorf("expected one BEGIN and one COMMIT, got: %s", db.query)
	}
	if db.vars["v1_rating"] != 5 {
		t.Errorf("expected namespaced rating var, got %v", db.vars)
	}
}

func TestAtomicBatch_PropagatesError(t *testing.T) {
	t.Parallel()
	db := &recordingDB{err: ErrQuery}

	_, err := NewAtomicBatch().Add("CREATE x", nil).Execute(context.Background(), db)

	if !errors.Is(err, ErrQuery) {
		t.Errorf("expected ErrQuery, got %v", err)
	}
}

// ============================================================================
// Error Type Tests
// ============================================================================

func TestCastError_MatchesErrInvalidID(t *testing.T) {
	t.Parallel()

	var err error = &CastError{Value: "not-an-id"}

	if !errors.Is(err, ErrInvalidID) {
		t.Error("CastError should match ErrInvalidID")
	}
	if !strings.Contains(err.Error(), "not-an-id") {
		t.Errorf("error should include the value, got %s", err.Error())
	}
}

func TestDuplicateError_MatchesErrDuplicate(t *testing.T) {
	t.Parallel()

	var err error = &DuplicateError{Field: "email", Value: "a@b.c"}

	if !errors.Is(err, ErrDuplicate) {
		t.Error("DuplicateError should match ErrDuplicate")
	}

	var dup *DuplicateError
	if !errors.As(err, &dup) || dup.Field != "email" {
		t.Errorf("expected errors.As to recover the field, got %+v", dup)
	}
}
