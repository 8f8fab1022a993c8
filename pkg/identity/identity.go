package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gametriol/InductionMainPage2k25/internal/models"
	apperrors "github.com/gametriol/InductionMainPage2k25/pkg/errors"
	"github.com/gametriol/InductionMainPage2k25/pkg/metrics"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid identity token")
	ErrExpiredToken     = errors.New("identity token has expired")
	ErrMissingEmail     = errors.New("identity token has no email")
	ErrEmailNotVerified = errors.New("email address is not verified")
	ErrNotConfigured    = errors.New("identity verification is not configured")
)

// Claims are the parts of the provider's ID token the form relies on
type Claims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks ID tokens signed with the shared HS256 secret
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier creates a verifier; empty issuer or audience skip that check
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// SignIn verifies the credential and returns the confirmed identity
func (v *Verifier) SignIn(_ context.Context, credential string) (*models.AuthSession, error) {
	claims, err := v.ValidateToken(strings.TrimSpace(credential))
	if err != nil {
		metrics.SignIns.WithLabelValues("rejected").Inc()
		return nil, apperrors.SignInError("identity could not be confirmed", err)
	}

	metrics.SignIns.WithLabelValues("success").Inc()
	return &models.AuthSession{
		Email:       strings.TrimSpace(claims.Email),
		DisplayName: claims.Name,
	}, nil
}

// ValidateToken parses the token and checks signature, expiry, issuer, audience and the email claims
func (v *Verifier) ValidateToken(tokenString string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrNotConfigured
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if strings.TrimSpace(claims.Email) == "" {
		return nil, ErrMissingEmail
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	return claims, nil
}

// Issuer signs ID tokens with the same secret; used by local development
// tooling and tests standing in for the identity provider.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewIssuer creates a token issuer
func NewIssuer(secret, issuer, audience string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, audience: audience, ttl: ttl}
}

// IssueToken creates a signed ID token for the given identity
func (i *Issuer) IssueToken(email, name string, verified bool) (string, error) {
	now := time.Now()

	claims := Claims{
		Email:         email,
		EmailVerified: &verified,
		Name:          name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			Subject:   email,
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
