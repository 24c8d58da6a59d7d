package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orba/jobtracker/internal/platform/config"
	apperrors "github.com/orba/jobtracker/internal/platform/errors"
)

// tokenEnv holds raw env values before post-parse validation.
type tokenEnv struct {
	Issuer    string `env:"ORBA_SESSION_TOKEN_ISSUER"`
	Audience  string `env:"ORBA_SESSION_TOKEN_AUDIENCE"`
	PublicKey string `env:"ORBA_SESSION_TOKEN_PUBLIC_KEY"`
}

// TokenConfig defines how externally issued session tokens are verified.
// Credential issuance lives outside this service; the board only checks that
// a presented token names a real user.
type TokenConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// tokenClaims is the internal claims type used for JWT parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
}

// LoadTokenConfigFromEnv reads session token verification configuration.
func LoadTokenConfigFromEnv(now func() time.Time) (TokenConfig, error) {
	var raw tokenEnv
	if err := config.ParseEnv(&raw); err != nil {
		return TokenConfig{}, err
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return TokenConfig{}, fmt.Errorf("ORBA_SESSION_TOKEN_ISSUER is required")
	}
	if audience == "" {
		return TokenConfig{}, fmt.Errorf("ORBA_SESSION_TOKEN_AUDIENCE is required")
	}
	if publicKey == "" {
		return TokenConfig{}, fmt.Errorf("ORBA_SESSION_TOKEN_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return TokenConfig{}, fmt.Errorf("decode session token public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return TokenConfig{}, fmt.Errorf("session token public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return TokenConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// VerifyToken validates a session token and returns the authenticated
// identity it names.
func VerifyToken(token string, cfg TokenConfig) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, apperrors.New(apperrors.CodeIdentityInvalidToken, "session token is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return Identity{}, errors.New("session token verifier is not configured")
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Identity{}, apperrors.WithMetadata(
			apperrors.CodeIdentityInvalidToken,
			"session token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Identity{}, apperrors.WithMetadata(
			apperrors.CodeIdentityInvalidToken,
			"session token audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if parsed.ExpiresAt == nil {
		return Identity{}, apperrors.New(apperrors.CodeIdentityInvalidToken, "session token exp is required")
	}

	now := cfg.Now().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return Identity{}, apperrors.New(apperrors.CodeIdentityInvalidToken, "session token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time.UTC()) {
		return Identity{}, apperrors.New(apperrors.CodeIdentityInvalidToken, "session token not active yet")
	}

	userID := strings.TrimSpace(parsed.Subject)
	if userID == "" {
		return Identity{}, apperrors.New(apperrors.CodeIdentityInvalidToken, "session token subject is required")
	}

	return Authenticated(userID), nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeIdentityInvalidToken, "session token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeIdentityInvalidToken, "session token alg is invalid")
	}
	return apperrors.Wrap(apperrors.CodeIdentityInvalidToken, "session token is malformed", err)
}

func audienceContains(audience jwt.ClaimStrings, expected string) bool {
	for _, value := range audience {
		if value == expected {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}
