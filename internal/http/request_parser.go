// This file implements utilities for parsing request bodies and query
// strings. Bodies may be JSON or form encoded; numeric fields are accepted
// either as JSON numbers or as strings.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mywallet/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("Invalid request body")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for subsequent
// parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = errMalformedBody
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(body))
	if p.err != nil {
		p.err = errMalformedBody
	}
	return p.err
}

// Has reports whether key was supplied with a non-null value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a trimmed string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(p.formData.Get(key))
	}
	return ""
}

// Bool reports whether key holds a true value ("true", "1", true).
func (p *RequestBodyParser) Bool(key string) bool {
	v, err := strconv.ParseBool(p.Get(key))
	return err == nil && v
}

// Amount parses key as a whole amount. A missing key yields (nil, nil).
func (p *RequestBodyParser) Amount(key string) (*int64, error) {
	if !p.Has(key) {
		return nil, nil
	}
	v, err := core.ParseAmount(p.Get(key))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Date parses key with core.ParseDate. A missing key yields (nil, nil).
func (p *RequestBodyParser) Date(key string, loc *time.Location) (*time.Time, error) {
	if !p.Has(key) {
		return nil, nil
	}
	t, err := core.ParseDate(p.Get(key), loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// String returns a pointer to the value of key, or nil when it is missing.
func (p *RequestBodyParser) String(key string) *string {
	if !p.Has(key) {
		return nil
	}
	v := p.Get(key)
	return &v
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody is the common prologue of handlers that read a body.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		return nil, core.Validation(errMalformedBody)
	}
	return p, nil
}

// queryRange reads the optional startDate/endDate query parameters.
func queryRange(q url.Values, loc *time.Location) (from, to time.Time, err error) {
	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		if from, err = core.ParseDate(v, loc); err != nil {
			return time.Time{}, time.Time{}, core.Validation(core.ErrInvalidDate)
		}
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		if to, err = core.ParseDate(v, loc); err != nil {
			return time.Time{}, time.Time{}, core.Validation(core.ErrInvalidDate)
		}
	}
	return from, to, nil
}
