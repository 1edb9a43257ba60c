package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mywallet/internal/core"
)

func writeTo(b *ResponseBuilder) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	b.Write(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestResponseBuilder_Success(t *testing.T) {
	w := writeTo(Success().Message("Transaction record created successfully").Data(map[string]int{"amount": 5}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"SUCCESS","message":"Transaction record created successfully","data":{"amount":5}}`, w.Body.String())
}

func TestResponseBuilder_TotalAmountZeroIsKept(t *testing.T) {
	w := writeTo(Success().Data(nonNil[int](nil)).TotalAmount(0))
	assert.JSONEq(t, `{"status":"SUCCESS","data":[],"totalAmount":0}`, w.Body.String())
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "validation",
			err:  core.Validation(core.ErrEmptyFields),
			want: `{"status":"FAILED","message":"Empty input fields!"}`,
		},
		{
			name: "not found",
			err:  core.NotFound("Budget record not found"),
			want: `{"status":"FAILED","message":"Budget record not found"}`,
		},
		{
			name: "persistence carries cause",
			err:  core.Persistence("An error occurred while retrieving balance records", errors.New("database is locked")),
			want: `{"status":"FAILED","message":"An error occurred while retrieving balance records","error":"database is locked"}`,
		},
		{
			name: "unclassified",
			err:  errors.New("boom"),
			want: `{"status":"FAILED","message":"boom","error":"boom"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := writeTo(FromError(tt.err))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestResponseBuilder_StatusAndHeader(t *testing.T) {
	w := writeTo(Failed("Too many requests").Status(http.StatusTooManyRequests).Header("Retry-After", "30"))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, StatusFailed, env.Status)
}
