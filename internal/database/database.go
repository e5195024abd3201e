// Package database provides the database abstraction layer for the Tours API.
//
// This package defines the Database interface that abstracts SurrealDB operations,
// allowing for clean separation between business logic and data access. A
// MongoDB client wrapper is provided for the alternative document store.
//
// # Interface Design
//
// The Database interface provides three query methods:
//   - Query: Returns multiple results (for SELECT queries returning lists)
//   - QueryOne: Returns a single result (for SELECT by ID)
//   - Execute: No return value (for CREATE/UPDATE/DELETE mutations)
//
// # Transaction Support
//
// Transactions are BATCH-BASED, not connection-level. AtomicBatch accumulates
// statements and executes them wrapped in BEGIN TRANSACTION / COMMIT
// TRANSACTION. See transaction.go.
//
// # Error Handling
//
// Standard errors are defined for common failure cases:
//   - ErrNotFound: Record does not exist
//   - ErrDuplicate: Unique constraint violation (wrapped in *DuplicateError)
//   - ErrConnection: Database connection issues
//   - ErrQuery: Query execution failures
//   - *CastError: An identifier that cannot address a record
//
// Use errors.Is() and errors.As() to check error types:
//
//	var dup *database.DuplicateError
//	if errors.As(err, &dup) {
//	    // dup.Field, dup.Value
//	}
package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Standard errors for database operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique constraint violation (e.g., duplicate email).
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure (syntax error, invalid reference, etc.).
	ErrQuery = errors.New("query error")

	// ErrInvalidID indicates an identifier that cannot address a record.
	ErrInvalidID = errors.New("invalid id")
)

// CastError reports an identifier that is not a valid record key
type CastError struct {
	Value string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("invalid id: %s", e.Value)
}

// Is lets errors.Is match ErrInvalidID
func (e *CastError) Is(target error) bool {
	return target == ErrInvalidID
}

// DuplicateError reports a unique constraint violation on one field
type DuplicateError struct {
	Field string
	Value string
	Err   error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Field, e.Value)
}

// Is lets errors.Is match ErrDuplicate
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// Database defines the interface for database operations
type Database interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Query executes a query and returns results
	Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error)

	// QueryOne executes a query and returns a single result
	QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error)

	// Execute runs a query without returning results (for mutations)
	Execute(ctx context.Context, query string, vars map[string]interface{}) error
}

// Config holds SurrealDB configuration
type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}
