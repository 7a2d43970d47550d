package oauth

import (
	"net/http"

	httperrors "github.com/dropDatabas3/codeflow/internal/http/errors"
	"github.com/dropDatabas3/codeflow/internal/http/helpers"
	svc "github.com/dropDatabas3/codeflow/internal/http/services/oauth"
)

type UserInfoController struct {
	service svc.UserInfoService
}

func NewUserInfoController(s svc.UserInfoService) *UserInfoController {
	return &UserInfoController{service: s}
}

// UserInfo GET /userinfo. Cualquier falla es el mismo 401 invalid_token.
func (c *UserInfoController) UserInfo(w http.ResponseWriter, r *http.Request) {
	out, err := c.service.UserInfo(r.Context(), helpers.BearerToken(r))
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrInvalidToken)
		return
	}
	helpers.WriteNoStoreJSON(w, http.StatusOK, out)
}
