package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadyz(t *testing.T) {
	ok := NewController("authserver", "dev", map[string]Check{
		"store": func(context.Context) error { return nil },
	})
	rec := httptest.NewRecorder()
	ok.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ready","checks":{"store":"ok"}}`, rec.Body.String())

	bad := NewController("authserver", "dev", map[string]Check{
		"store": func(context.Context) error { return errors.New("down") },
	})
	rec = httptest.NewRecorder()
	bad.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"unavailable","checks":{"store":"error"}}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewController("client", "dev", nil).Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
