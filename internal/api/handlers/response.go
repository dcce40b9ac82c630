package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"coderr-service/internal/api/middleware"
	"coderr-service/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type apiError struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	writeJSON(w, status, apiError{
		Error:   code,
		Message: message,
		Details: details,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body", map[string][]string{"body": {err.Error()}})
		return false
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body", map[string][]string{"body": {"extra data after json"}})
		return false
	}

	return true
}

// NotFound answers requests no route matches.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "Not found.", nil)
}

// MethodNotAllowed answers requests whose route exists for other methods.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed.", nil)
}

var errorCodes = map[service.Kind]struct {
	status int
	code   string
}{
	service.KindValidation:       {http.StatusBadRequest, "validation_error"},
	service.KindAuth:             {http.StatusBadRequest, "invalid_credentials"},
	service.KindUnauthenticated:  {http.StatusUnauthorized, "unauthenticated"},
	service.KindPermission:       {http.StatusForbidden, "forbidden"},
	service.KindNotFound:         {http.StatusNotFound, "not_found"},
	service.KindMethodNotAllowed: {http.StatusMethodNotAllowed, "method_not_allowed"},
}

// writeServiceError maps a service failure onto the response. Anything that
// is not a typed service error, or is internal, is logged and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		if c, ok := errorCodes[se.Kind]; ok {
			var details interface{}
			if len(se.Fields) > 0 {
				details = se.Fields
			}
			writeError(w, c.status, c.code, se.Message, details)
			return
		}
	}

	logger.Error().
		Err(err).
		Str("request_id", middleware.RequestIDFrom(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
}

// parseID reads a positive integer URL parameter. Anything else is a 404,
// as no such resource can exist.
func parseID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not_found", "Not found.", nil)
		return 0, false
	}
	return id, true
}
