package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/memestall/memestall/apperr"
)

type errorBody struct {
	Error *apperr.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to a status code and JSON body.
// Unclassified errors become opaque 500s; the detail stays in the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Store("internal error", nil)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		// Do not leak backend detail.
		appErr = &apperr.Error{Code: appErr.Code, Message: "internal error"}
	}
	writeJSON(w, status, errorBody{Error: appErr})
}

// decodeValid decodes a JSON body into req and runs struct validation.
func (s *Server) decodeValid(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return apperr.Validation("malformed JSON body")
	}
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
			return apperr.Validation("invalid request body").WithDetails(details)
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}
