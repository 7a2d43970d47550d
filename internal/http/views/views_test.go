package views

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	dto "github.com/dropDatabas3/codeflow/internal/http/dto/oauth"
)

func TestRenderLoginEscapesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	err := RenderLogin(rec, http.StatusUnauthorized, LoginPage{
		ClientID:     "client123",
		State:        `"><script>x</script>`,
		ResponseType: "code",
		Error:        "Invalid username or password.",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `name="client_id" value="client123"`)
	require.Contains(t, body, "Invalid username or password.")
	require.NotContains(t, body, "<script>x</script>")
}

func TestRenderConsentListsScopes(t *testing.T) {
	rec := httptest.NewRecorder()
	err := RenderConsent(rec, http.StatusOK, ConsentPage{
		ClientID: "client123",
		Subject:  "user",
		Ticket:   "tkt",
		Scopes:   []dto.ScopeView{{Name: "email", Description: "Access your email address"}},
	})
	require.NoError(t, err)
	body := rec.Body.String()
	require.Contains(t, body, `name="ticket" value="tkt"`)
	require.Contains(t, body, `value="email"`)
	require.Contains(t, body, `formaction="/approve"`)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}
