package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finrep.org/internal/authz"
	"finrep.org/internal/org"
)

var (
	ErrInvalidToken       = errors.New("authn: invalid token")
	ErrInactiveUser       = errors.New("authn: user is inactive")
	ErrInvalidCredentials = errors.New("authn: invalid credentials")
)

const defaultTokenTTL = 1 * time.Hour

// UserResolver looks up accounts for token verification and credential
// checks. Implemented by the org service.
type UserResolver interface {
	FindUser(ctx context.Context, id string) (*org.User, error)
	FindUserByEmail(ctx context.Context, email string) (*org.User, error)
}

// Service issues and verifies HS256 bearer tokens and builds the acting
// principal the authorization engine consumes.
type Service struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	resolver UserResolver
	now      func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithIssuer requires the iss claim to match.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		s.issuer = strings.TrimSpace(issuer)
	}
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func NewService(secret string, resolver UserResolver, opts ...Option) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("authn: token secret is required")
	}
	if resolver == nil {
		return nil, errors.New("authn: user resolver is required")
	}
	s := &Service{secret: []byte(secret), tokenTTL: defaultTokenTTL, resolver: resolver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Token is an issued access token with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Login authenticates credentials and mints an access token. Any credential
// failure collapses into ErrInvalidCredentials so callers leak nothing about
// which part was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (Token, authz.Actor, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Token{}, authz.Actor{}, ErrInvalidCredentials
	}
	user, err := s.resolver.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, org.ErrNotFound) || errors.Is(err, org.ErrInvalidInput) {
			return Token{}, authz.Actor{}, ErrInvalidCredentials
		}
		return Token{}, authz.Actor{}, err
	}
	if !user.Active {
		return Token{}, authz.Actor{}, ErrInvalidCredentials
	}
	if err := org.VerifyPassword(user.PasswordHash, password); err != nil {
		return Token{}, authz.Actor{}, ErrInvalidCredentials
	}
	tok, err := s.mintToken(user.ID)
	if err != nil {
		return Token{}, authz.Actor{}, err
	}
	return tok, user.Actor(), nil
}

func (s *Service) mintToken(subject string) (Token, error) {
	now := s.now()
	expires := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expires}, nil
}

// AuthenticateToken verifies an HS256 bearer token and resolves its subject
// to an active account.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (authz.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return authz.Actor{}, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil || !parsed.Valid {
		return authz.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return authz.Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	user, err := s.resolver.FindUser(ctx, subject)
	if err != nil {
		if errors.Is(err, org.ErrNotFound) {
			return authz.Actor{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return authz.Actor{}, err
	}
	if !user.Active {
		return authz.Actor{}, ErrInactiveUser
	}
	return user.Actor(), nil
}
