// Package errors define los errores HTTP de ambos servicios en el formato OAuth 2.0.
package errors

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/codeflow/internal/observability/logger"
)

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError escribe err como JSON OAuth. Los 5xx se loguean con su causa.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)

	if appErr.HTTPStatus >= 500 && r != nil {
		logger.From(r.Context()).Error("request failed",
			logger.String("error_code", appErr.Code),
			logger.Err(appErr.Err),
		)
	}

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
	if appErr.WWWAuthenticate != "" {
		h.Set("WWW-Authenticate", appErr.WWWAuthenticate)
	}
	if appErr.RetryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: appErr.Code, ErrorDescription: appErr.Description})
}
