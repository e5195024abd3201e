package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forgo/tours/api/internal/model"
	"github.com/forgo/tours/api/internal/query"
)

// StatusSuccess is the status of every successful response
const StatusSuccess = "success"

// Envelope is the body of every successful response
type Envelope struct {
	Status  string      `json:"status"`
	Results *int        `json:"results,omitempty"`
	Token   string      `json:"token,omitempty"`
	Data    interface{} `json:"data"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteData writes {status, data:{key: value}}
func WriteData(w http.ResponseWriter, status int, key string, value interface{}) {
	WriteJSON(w, status, Envelope{
		Status: StatusSuccess,
		Data:   map[string]interface{}{key: value},
	})
}

// WriteCollection writes {status, results, data:{key: items}} with items
// reduced to the fields selected by proj.
func WriteCollection(w http.ResponseWriter, key string, items interface{}, count int, proj query.Projection) error {
	projected, err := Project(items, proj)
	if err != nil {
		return err
	}
	WriteJSON(w, http.StatusOK, Envelope{
		Status:  StatusSuccess,
		Results: &count,
		Data:    map[string]interface{}{key: projected},
	})
	return nil
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DecodeJSON decodes a JSON request body into v. Unknown fields are
// ignored. Failures come back as 400 errors ready for the error writer.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return decodeError(err)
	}
	return nil
}

// ReadBody returns the raw request body, for handlers that merge patches
func ReadBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, decodeError(err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(body) {
		return nil, model.NewBadRequestError("Invalid request body: malformed JSON")
	}
	return body, nil
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		e := model.NewAppError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body is larger than %d bytes", tooLarge.Limit))
		e.Err = err
		return e
	case errors.Is(err, io.EOF):
		return model.NewBadRequestError("Request body is empty")
	default:
		e := model.NewBadRequestError("Invalid request body: " + err.Error())
		e.Err = err
		return e
	}
}

// Project renders v as JSON documents holding only the fields proj
// selects. id is always kept on inclusion lists. Nested paths select
// their top-level field.
func Project(v interface{}, proj query.Projection) (interface{}, error) {
	if proj.IsZero() {
		return v, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("render projection: %w", err)
	}

	var docs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			return v, nil
		}
		return projectDoc(doc, proj), nil
	}
	for i := range docs {
		docs[i] = projectDoc(docs[i], proj)
	}
	return docs, nil
}

func projectDoc(doc map[string]json.RawMessage, proj query.Projection) map[string]json.RawMessage {
	if len(proj.Include) > 0 {
		keep := map[string]bool{"id": true}
		for _, f := range proj.Include {
			keep[topLevel(f)] = true
		}
		for k := range doc {
			if !keep[k] {
				delete(doc, k)
			}
		}
		return doc
	}
	for _, f := range proj.Exclude {
		if !strings.Contains(f, ".") {
			delete(doc, f)
		}
	}
	return doc
}

func topLevel(field string) string {
	if i := strings.IndexByte(field, '.'); i >= 0 {
		return field[:i]
	}
	return field
}

// CookieConfig controls the cookie that carries the identity token
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// loggedOutValue replaces the token on logout
const loggedOutValue = "loggedout"

func (c CookieConfig) name() string {
	if c.Name == "" {
		return "jwt"
	}
	return c.Name
}

// Set writes the token cookie
func (c CookieConfig) Set(w http.ResponseWriter, token string, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		Expires:  now.Add(c.TTL),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear overwrites the token cookie with a short-lived placeholder
func (c CookieConfig) Clear(w http.ResponseWriter, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    loggedOutValue,
		Path:     "/",
		Expires:  now.Add(10 * time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
