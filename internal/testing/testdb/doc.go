// Package testdb provides test database utilities for the Tours API.
//
// The testdb package manages test database connections with automatic
// setup, migration, and cleanup. Tests are skipped rather than failed when
// the database is unreachable.
//
// # SurrealDB
//
// Each test gets an isolated namespace with migrations applied:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    users := repository.NewUserRepository(tdb.DB)
//	}
//
// The namespace is removed on cleanup. Connection settings come from
// TEST_DB_HOST, TEST_DB_PORT, TEST_DB_USER and TEST_DB_PASSWORD.
//
// # MongoDB
//
// NewMongo creates a uniquely named database on TEST_MONGO_URI with the
// collection indexes in place:
//
//	mdb := testdb.NewMongo(t)
//	tours := mongostore.NewTourRepository(mdb.DB)
//
// # Shared Database
//
// For subtests that share a connection:
//
//	s := testdb.NewShared(t)
//	t.Run("create", func(t *testing.T) { tdb := s.SetupSubtest(t); ... })
//
// # Timeout Context
//
//	ctx := tdb.Ctx() // 10 second timeout, cancelled on cleanup
package testdb
