package dto

type AdminLoginRequest struct {
	Secret string `json:"secret" validate:"required"`
}

type TokenPair struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
