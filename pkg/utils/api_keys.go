package utils

import (
	"crypto/rand"
	"encoding/base64"
)

const apiKeyPrefix = "tp_"

// GenerateRandomKey returns length random bytes, URL-safe base64 encoded.
func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func GenerateApiKey() (string, error) {
	key, err := GenerateRandomKey(24)
	if err != nil {
		return "", err
	}
	return apiKeyPrefix + key, nil
}
