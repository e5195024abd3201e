// Package model defines domain entities and data structures for the Tours API.
//
// The model package contains the struct definitions for tours, users and
// reviews, the request bodies accepted by the handlers, and the error shape
// written to clients. Models are used across all layers of the application
// and carry no storage concerns.
//
// # Domain Entities
//
//   - User: account with role, password hash and reset-token state
//   - Tour: bookable tour with GeoJSON start location and itinerary
//   - Review: rating left by a user on a tour
//
// # Error Types
//
// AppError is the single client-facing error shape. It renders in two modes:
//
//	err := model.NewNotFoundError("No tour found with that ID")
//	err.WriteJSON(w, model.ErrorModeSanitized) // {"status":"fail","message":"..."}
//
// Non-operational errors collapse to a generic 500 in sanitized mode.
package model
