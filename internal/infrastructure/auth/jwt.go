package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/infrastructure/config"
)

// TokenType distinguishes the two token audiences: operator API tokens and
// the short-lived tokens the backend mints for outbound agent calls.
type TokenType string

const (
	TokenTypeAdmin TokenType = "admin"
	TokenTypeAgent TokenType = "agent"
)

// agentTokenTTL bounds outbound agent tokens. They are minted per call, so
// they only need to outlive one request round trip.
const agentTokenTTL = 5 * time.Minute

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
)

// Claims carries the custom JWT claims for both token types. VendorID is set
// on agent tokens only.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	VendorID  string    `json:"vendor_id,omitempty"`
}

// JWTService issues and validates HMAC-signed tokens.
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a JWT service from configuration.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.Expiration,
		issuer:     cfg.Issuer,
	}
}

// IssueAdminToken issues an operator token for the given subject.
func (s *JWTService) IssueAdminToken(subject string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TokenType: TokenTypeAdmin,
	}

	token, err := s.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// MintAgentToken mints a short-lived token for one outbound agent call.
func (s *JWTService) MintAgentToken(vendorID uuid.UUID) (string, error) {
	now := time.Now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   vendorID.String(),
			Audience:  jwt.ClaimStrings{"erp-agent"},
			ExpiresAt: jwt.NewNumericDate(now.Add(agentTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TokenType: TokenTypeAgent,
		VendorID:  vendorID.String(),
	}

	return s.sign(claims)
}

// ValidateAdminToken validates an operator token and returns its claims.
func (s *JWTService) ValidateAdminToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAdmin)
}

// ValidateAgentToken validates an agent token. Agents normally verify these
// themselves; the backend uses this for token introspection in tests and
// diagnostics.
func (s *JWTService) ValidateAgentToken(tokenString string) (*Claims, error) {
	claims, err := s.validate(tokenString, TokenTypeAgent)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.VendorID); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (s *JWTService) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) validate(tokenString string, expectedType TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != expectedType {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}
