package models

// Credentials is the admin login request body
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is returned after a successful login
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"` // RFC 3339
}
