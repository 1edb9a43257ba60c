// Package http serves the JSON API.
//
// This file builds the response envelope shared by every endpoint:
//
//	{"status": "SUCCESS", "message": "...", "data": ..., "error": "...", "totalAmount": 0}
//
// Failures are reported in the body with HTTP 200; only rate limiting uses a
// different status code.

package http

import (
	"encoding/json"
	"net/http"

	"mywallet/internal/core"
	"mywallet/internal/log"
)

// Status is the outcome reported in the envelope.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusFailed   Status = "FAILED"
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status      Status `json:"status"`
	Message     string `json:"message,omitempty"`
	Data        any    `json:"data,omitempty"`
	Error       string `json:"error,omitempty"`
	TotalAmount *int64 `json:"totalAmount,omitempty"`
}

// ResponseBuilder provides a fluent API for building envelope responses.
type ResponseBuilder struct {
	env        Envelope
	statusCode int
	headers    map[string]string
}

// NewResponse creates a builder for status with HTTP 200.
func NewResponse(status Status) *ResponseBuilder {
	return &ResponseBuilder{
		env:        Envelope{Status: status},
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func Success() *ResponseBuilder {
	return NewResponse(StatusSuccess)
}

func Failed(message string) *ResponseBuilder {
	return NewResponse(StatusFailed).Message(message)
}

// FromError renders err as a FAILED envelope. Persistence failures also
// carry the underlying cause in the error field.
func FromError(err error) *ResponseBuilder {
	b := Failed(core.MessageOf(err))
	if core.KindOf(err) == core.KindPersistence {
		b.Error(core.CauseOf(err))
	}
	return b
}

func (b *ResponseBuilder) Message(message string) *ResponseBuilder {
	b.env.Message = message
	return b
}

func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.env.Data = data
	return b
}

func (b *ResponseBuilder) Error(cause string) *ResponseBuilder {
	b.env.Error = cause
	return b
}

func (b *ResponseBuilder) TotalAmount(total int64) *ResponseBuilder {
	b.env.TotalAmount = &total
	return b
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Envelope returns the body built so far.
func (b *ResponseBuilder) Envelope() Envelope {
	return b.env
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.env); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response",
			log.FieldError, err, log.FieldPath, r.URL.Path)
	}
}

// nonNil keeps empty lists rendered as [] rather than null.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
