// Package service implements the business logic layer for the Tours API.
//
// Services validate input, apply defaults and orchestrate repository calls.
// Rules that a document store would otherwise run as hooks (password
// hashing, email normalization, rating recomputation, the discount check)
// are explicit calls here, made before or after the persistence call they
// belong to.
//
// # Service Pattern
//
//   - Constructor function (NewXxxService) accepts a config struct with repository dependencies
//   - Methods implement business operations with proper validation
//   - Errors are returned as sentinel errors (errors.go), *model.ValidationError
//     or storage errors from the database package
//   - Context is passed through for cancellation and request-scoped values
//
// # Repository Interfaces
//
// Services define their own repository interfaces. Both the SurrealDB
// repositories (package repository) and the MongoDB ones (package
// mongostore) satisfy them.
//
// # Example Usage
//
//	tours := NewTourService(TourServiceConfig{
//	    TourRepo:   tourRepository,
//	    UserRepo:   userRepository,
//	    ReviewRepo: reviewRepository,
//	})
//	detail, err := tours.Get(ctx, id)
package service
