package oauth

// UserInfoResponse proyección del perfil filtrada por scope.
type UserInfoResponse struct {
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
