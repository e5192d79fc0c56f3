package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

// ErrSecretMissing indicates the manager was constructed without a signing secret.
var ErrSecretMissing = errors.New("jwt: signing secret is required")

// ErrInvalidToken indicates a token failed signature or claim validation.
var ErrInvalidToken = errors.New("jwt: invalid token")

// AccessTokenClaims augments registered claims with the tenant and role
// context the API authorizes on.
type AccessTokenClaims struct {
	Roles     []string `json:"roles,omitempty"`
	UserID    string   `json:"uid"`
	CompanyID string   `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry the given role.
func (c *AccessTokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenManager signs and verifies HMAC access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

const defaultAccessTokenTTL = 15 * time.Minute

// NewTokenManager constructs a TokenManager with the shared signing secret.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretMissing
	}
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// AccessTokenOptions configures creation of access token claims.
type AccessTokenOptions struct {
	UserID    string
	CompanyID string
	Roles     []string
	TTL       time.Duration
	IssuedAt  time.Time
	JTI       string
}

// Sign produces a signed access token for the supplied options.
func (m *TokenManager) Sign(opts AccessTokenOptions) (string, error) {
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		return "", fmt.Errorf("jwt: user id is required")
	}

	now := opts.IssuedAt
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = m.ttl
	}

	jti := strings.TrimSpace(opts.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := &AccessTokenClaims{
		Roles:     normalizeRoles(opts.Roles),
		UserID:    userID,
		CompanyID: strings.TrimSpace(opts.CompanyID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a signed token, returning its claims.
func (m *TokenManager) Verify(signed string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if strings.TrimSpace(claims.UserID) == "" {
		return nil, fmt.Errorf("%w: missing uid claim", ErrInvalidToken)
	}

	return claims, nil
}

func normalizeRoles(input []string) []string {
	if len(input) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, role := range input {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, exists := seen[role]; exists {
			continue
		}
		seen[role] = struct{}{}
		result = append(result, role)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
