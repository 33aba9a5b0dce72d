// Package auth implements the interactive OAuth2 authorization-code flow:
// PKCE, the local redirect callback server, and the login sequence.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCEMethodS256 is the only challenge method the flow sends.
const PKCEMethodS256 = "S256"

// PKCE is the verifier/challenge pair for one authorization attempt.
type PKCE struct {
	Verifier  string
	Challenge string
	Method    string
}

// NewPKCE generates a random verifier and its S256 challenge.
func NewPKCE() (*PKCE, error) {
	// 48 random bytes encode to a 64 character url-safe verifier.
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return &PKCE{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
		Method:    PKCEMethodS256,
	}, nil
}

// ChallengeS256 derives the S256 code challenge for a verifier: base64url
// without padding over the SHA-256 digest.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
