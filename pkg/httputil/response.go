// Package httputil provides HTTP handler utilities for consistent error handling,
// the JSON response envelope, and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Envelope is the uniform JSON response shape.
// Success responses carry data (and meta for lists); error responses carry
// the error message. The Success flag doubles as the cacheability marker
// consumed by the response-cache middleware.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *ListMeta   `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Source  string      `json:"source,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ListMeta describes pagination metadata for list responses
type ListMeta struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
	Sort       string `json:"sort"`
	Order      string `json:"order"`
}

// AppError is an error carrying the HTTP status it should surface as
type AppError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates an AppError with an explicit status code
func NewAppError(message string, statusCode int) *AppError {
	return &AppError{StatusCode: statusCode, Message: message}
}

// BadRequest creates a 400 error
func BadRequest(message string) *AppError {
	return NewAppError(message, http.StatusBadRequest)
}

// Unauthorized creates a 401 error
func Unauthorized(message string) *AppError {
	return NewAppError(message, http.StatusUnauthorized)
}

// Forbidden creates a 403 error
func Forbidden(message string) *AppError {
	return NewAppError(message, http.StatusForbidden)
}

// NotFound creates a 404 error
func NotFound(message string) *AppError {
	return NewAppError(message, http.StatusNotFound)
}

// Conflict creates a 409 error
func Conflict(message string) *AppError {
	return NewAppError(message, http.StatusConflict)
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteData writes a 200 success envelope with data
func WriteData(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Source: "database"})
}

// WriteCreated writes a 201 success envelope with data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// WriteList writes a 200 success envelope with data and pagination meta
func WriteList(w http.ResponseWriter, data interface{}, meta ListMeta) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Meta: &meta, Source: "database"})
}

// WriteMessage writes a 200 success envelope with only a message
func WriteMessage(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: message})
}

// WriteMessageCount writes a 200 success envelope with a message and a count,
// used by bulk delete endpoints
func WriteMessageCount(w http.ResponseWriter, message string, count int) error {
	return WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Count: &count})
}

// WriteError writes an error envelope. AppError values surface their own
// status code; everything else is a 500 with a generic message so internal
// detail never leaks to the caller.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		WriteErrorStatus(w, appErr.StatusCode, appErr.Message)
		return
	}
	WriteErrorStatus(w, http.StatusInternalServerError, "Internal Server Error")
}

// WriteErrorStatus writes an error envelope with an explicit status code
func WriteErrorStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: false, Error: message})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorStatus(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorStatus(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorStatus(w, http.StatusForbidden, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorStatus(w, http.StatusNotFound, message)
}
