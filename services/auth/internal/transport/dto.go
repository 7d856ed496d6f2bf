package transport

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID string `json:"userId"`
}

// LoginRequest.Username may also carry the email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken                  string `json:"accessToken"`
	AccessTokenExpiresInSeconds  int64  `json:"accessTokenExpiresInSeconds"`
	RefreshToken                 string `json:"refreshToken"`
	RefreshTokenExpiresInSeconds int64  `json:"refreshTokenExpiresInSeconds"`
}
