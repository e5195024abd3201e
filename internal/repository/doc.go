// Package repository implements the SurrealDB data access layer for the
// Tours API.
//
// Each repository struct handles the operations the services need for one
// table: user, tour or review. The MongoDB implementations of the same
// interfaces live in the mongostore subpackage.
//
// # Repository Pattern
//
// All repositories follow a consistent pattern:
//
//   - Constructor function (NewXxxRepository) accepts a database connection
//   - Methods implement specific data operations (Create, GetByID, List, etc.)
//   - SurrealQL queries are used for all database interactions
//   - Results are parsed and mapped to model structs
//   - A missing record is (nil, nil); a malformed id is *database.CastError
//
// # Query Patterns
//
//   - Parameterized queries with $variable syntax
//   - type::thing() for safe ID handling
//   - buildSelect turns a query.Query into WHERE, ORDER BY, LIMIT and START
//   - Unique index violations become *database.DuplicateError
//
// # Example Usage
//
//	repo := NewTourRepository(db)
//	tour, err := repo.GetByID(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if tour == nil {
//	    // Handle not found
//	}
package repository
