package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coderr-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteServiceErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.FieldError("email", "Enter a valid email address."), http.StatusBadRequest, "validation_error"},
		{service.AuthFailed("Invalid credentials."), http.StatusBadRequest, "invalid_credentials"},
		{service.PermissionDenied("Only admins can delete orders."), http.StatusForbidden, "forbidden"},
		{service.NotFound("Offer not found."), http.StatusNotFound, "not_found"},
		{service.MethodNotAllowed(service.FullUpdateRejected), http.StatusMethodNotAllowed, "method_not_allowed"},
		{fmt.Errorf("load order: %w", service.NotFound("Order not found.")), http.StatusNotFound, "not_found"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), zerolog.Nop(), tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, tc.code, decodeError(t, rec).Error)
	}
}

func TestWriteServiceErrorFieldDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, httptest.NewRequest(http.MethodPost, "/", nil), zerolog.Nop(),
		service.FieldError("username", "A user with that username already exists."))

	var body struct {
		Details map[string][]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"A user with that username already exists."}, body.Details["username"])
}

func TestWriteServiceErrorHidesInternals(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	for _, err := range []error{
		errors.New("pq: connection reset"),
		service.Internal(errors.New("pq: connection reset")),
	} {
		logs.Reset()
		rec := httptest.NewRecorder()
		writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/api/orders/", nil), logger, err)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
		assert.Contains(t, logs.String(), "connection reset")
		assert.Contains(t, logs.String(), "/api/orders/")
	}
}

func TestParseID(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r, "id")
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"id": id})
	})

	for _, raw := range []string{"abc", "0", "-3", "99999999999999999999"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/"+raw, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, raw)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/12", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":12}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	cases := []struct {
		body string
		ok   bool
	}{
		{`{"name":"a"}`, true},
		{`{"name":"a"}` + "\n", true},
		{`{"name":"a"}{}`, false},
		{`{"name":"a","x":1}`, false},
		{`{"name":`, false},
		{`[]`, false},
	}

	for _, tc := range cases {
		body, want := tc.body, tc.ok
		var dst payload
		rec := httptest.NewRecorder()
		ok := decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &dst)

		assert.Equal(t, want, ok, body)
		if !want {
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)

			var got struct {
				Error   string              `json:"error"`
				Details map[string][]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got), body)
			assert.Equal(t, "bad_request", got.Error)
			assert.Len(t, got.Details["body"], 1, body)
		}
	}
}
