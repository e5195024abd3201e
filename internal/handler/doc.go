// Package handler provides HTTP request handlers for the Tours API.
//
// Each handler struct wraps one service interface and an error writer.
// Handlers decode the request, call the service and write one of the
// standard envelopes from response.go. They never build error bodies
// themselves: every failure goes through ErrorWriter, which maps service
// and storage errors to AppErrors with MapServiceError.
//
// # Response Format
//
//   - WriteData: {"status":"success","data":{key: value}}
//   - WriteCollection: adds "results" and applies the field projection
//   - WriteNoContent: 204 for deletes
//
// Tokens issued by signup, login and the password endpoints are returned in
// the body and set as an HttpOnly cookie.
//
// # Routing
//
// NewRouter registers every route on a net/http ServeMux. Authentication
// and role checks are middleware applied per route:
//
//	mux := handler.NewRouter(handler.RouterConfig{
//	    Tours:   tourHandler,
//	    Errors:  errorWriter,
//	    Protect: middleware.Protect(authConfig),
//	    ...
//	})
package handler
