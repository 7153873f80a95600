package token

import (
	"errors"
	"fmt"
	"time"

	"food-ordering-api/apperror"
	"food-ordering-api/models"

	"github.com/golang-jwt/jwt/v5"
)

// Type distinguishes access tokens from refresh tokens.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

type Claims struct {
	Role models.Role `json:"role"`
	Type Type        `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is what a successful login returns.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Access is what a successful refresh returns.
type Access struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Options struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service signs and verifies HS256 tokens. It holds only read-only settings
// and is safe for concurrent use.
type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("token: signing secret is empty")
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 {
		return nil, errors.New("token: lifetimes must be positive")
	}
	return &Service{
		secret:     []byte(opts.Secret),
		issuer:     opts.Issuer,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of s that reads time from now. Used in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// Issue produces an access/refresh pair for user.
func (s *Service) Issue(user *models.User) (*Pair, error) {
	access, err := s.sign(user.ID, user.Role, TypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(user.ID, user.Role, TypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// IssueAccess signs a fresh access token for subject with role.
func (s *Service) IssueAccess(subject string, role models.Role) (*Access, error) {
	tok, err := s.sign(subject, role, TypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &Access{AccessToken: tok, TokenType: "bearer", ExpiresIn: int64(s.accessTTL.Seconds())}, nil
}

func (s *Service) sign(subject string, role models.Role, typ Type, ttl time.Duration) (string, error) {
	if subject == "" || !role.Valid() {
		return "", errors.New("token: subject and role are required")
	}
	now := s.now()
	claims := Claims{
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, expiry and token type.
// Every failure is reported as apperror.InvalidToken.
func (s *Service) Verify(raw string, expected Type) (*Claims, error) {
	claims := &Claims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Wrap(apperror.InvalidToken, err, "token expired")
		}
		return nil, apperror.Wrap(apperror.InvalidToken, err, "invalid token")
	}
	if !tok.Valid {
		return nil, apperror.New(apperror.InvalidToken, "invalid token")
	}
	if claims.Type != expected {
		return nil, apperror.New(apperror.InvalidToken, fmt.Sprintf("expected %s token", expected))
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, apperror.New(apperror.InvalidToken, "invalid token claims")
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token carrying the
// same subject and role. It does not consult the credential store.
func (s *Service) Refresh(refreshToken string) (*Access, error) {
	claims, err := s.Verify(refreshToken, TypeRefresh)
	if err != nil {
		return nil, err
	}
	return s.IssueAccess(claims.Subject, claims.Role)
}
