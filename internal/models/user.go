package models

// User represents an identity record. Password holds whatever the
// configured password scheme produced at registration (verbatim for the
// plaintext scheme, a bcrypt hash otherwise) and is never serialized.
type User struct {
	ID       int64  `json:"id" dynamodbav:"id"`
	Username string `json:"username" dynamodbav:"username"`
	Password string `json:"-" dynamodbav:"password"`
}

// Credentials represents login/register request payload
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse represents a successful login or registration
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}
