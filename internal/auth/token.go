package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WalletClaim names the claim holding the caller's wallet address. Tokens
// without it fall back to the subject.
const WalletClaim = "wallet"

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// HMACVerifier checks HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	if tokenString == "" {
		return "", errors.New("empty token")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	return principalFromClaims(claims)
}

func principalFromClaims(claims map[string]interface{}) (string, error) {
	if wallet, ok := claims[WalletClaim].(string); ok && wallet != "" {
		return wallet, nil
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("subject claim not found in token")
	}
	return sub, nil
}

// IssueToken signs an HS256 token for wallet. Used by the seed command and tests.
func IssueToken(secret, wallet string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       wallet,
		WalletClaim: wallet,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
