// Package fixtures provides test data factories for the Tours API.
//
// The fixtures package contains factory functions for creating test data
// with sensible defaults and optional customization.
//
// # Factory Pattern
//
// Create a factory over the repositories under test:
//
//	f := fixtures.New(fixtures.Stores{Users: users, Tours: tours, Reviews: reviews})
//
// # Creating Test Data
//
//	user := f.CreateUser(t)                                  // standard user
//	admin := f.CreateAdmin(t)                                // administrator
//	tour := f.CreateTour(t, fixtures.TourOpts{Price: 997})   // default ratings
//	review, ratings := f.CreateReview(t, tour, user, 4)      // recomputes ratings
//
// Every fixture user logs in with DefaultPassword.
package fixtures
