// token.go handles access token generation and validation. Tokens are random
// secrets shown once at creation; only a bcrypt hash is stored, alongside a
// short plaintext prefix used to narrow the database lookup before the hash
// comparison.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenLength is the length of the random part of the token in bytes
	TokenLength = 32

	// DisplayPrefixLength is the number of characters to show in displays
	// and to store for indexed lookup
	DisplayPrefixLength = 10

	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 12
)

// GenerateAccessToken creates a new random access token with the given prefix.
// Returns: full token (to show once), bcrypt hash (to store), display prefix.
func GenerateAccessToken(prefix string) (token string, hash string, displayPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	_, err = rand.Read(randomBytes)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	randomPart := base64.RawURLEncoding.EncodeToString(randomBytes)

	// Full token: prefix_randomPart
	fullToken := fmt.Sprintf("%s_%s", prefix, randomPart)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullToken), BcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash access token: %w", err)
	}

	displayPrefixStr := fullToken
	if len(fullToken) > DisplayPrefixLength {
		displayPrefixStr = fullToken[:DisplayPrefixLength]
	}

	return fullToken, string(hashBytes), displayPrefixStr, nil
}

// ValidateAccessToken checks if a provided token matches the stored hash
func ValidateAccessToken(providedToken, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(providedToken))
	return err == nil
}

// ExtractTokenFromHeader extracts the bearer credential from an Authorization
// header. Expected format: "Bearer oac_abc123xyz..." or a JWT.
func ExtractTokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	token := strings.TrimPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)

	if token == "" {
		return "", errors.New("token is empty after Bearer prefix")
	}

	return token, nil
}
