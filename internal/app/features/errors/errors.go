// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"net/http"
)

// Body is the JSON shape of every non-2xx response.
// Field names the offending input when one can be identified.
type Body struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write sends {"error": msg}.
func Write(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Body{Error: msg})
}

// WriteField sends {"error": msg, "field": field}.
func WriteField(w http.ResponseWriter, status int, msg, field string) {
	JSON(w, status, Body{Error: msg, Field: field})
}

// BadRequest sends a 400.
func BadRequest(w http.ResponseWriter, msg string) {
	Write(w, http.StatusBadRequest, msg)
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter, msg string) {
	Write(w, http.StatusNotFound, msg)
}

// Conflict sends a 409 naming the colliding field.
func Conflict(w http.ResponseWriter, msg, field string) {
	WriteField(w, http.StatusConflict, msg, field)
}

// TooLarge sends a 413.
func TooLarge(w http.ResponseWriter, msg string) {
	Write(w, http.StatusRequestEntityTooLarge, msg)
}

// Message is the JSON shape of a plain success acknowledgement.
type Message struct {
	Message string `json:"message"`
}

// OK sends {"message": msg} with the given 2xx status.
func OK(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Message{Message: msg})
}
