// Package helpers provides test utility functions for the Tours API.
//
// # JWT Helpers
//
// Sign identity tokens with the shared test secret:
//
//	jh := helpers.NewJWTHelper(t)
//	token := jh.GenerateToken(user)
//	expired := jh.GenerateExpiredToken(t, user)
//
// # Request Helpers
//
// Build and serve requests against a handler:
//
//	resp := helpers.NewRequest(t, http.MethodGet, "/api/v1/tours").
//		WithAuth(jh, user).
//		Do(router)
//
// # Assertion Helpers
//
//	helpers.AssertStatus(t, resp, http.StatusOK)
//	helpers.AssertError(t, resp, http.StatusUnauthorized, "not logged in")
//	helpers.DataField(t, resp, "tour", &tour)
package helpers
