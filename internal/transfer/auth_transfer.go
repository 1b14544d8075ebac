package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

type ApiKeyCreation struct {
	Name string `json:"name" validate:"max=64"`
}
