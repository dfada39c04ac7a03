package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/user"
	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID   int64
	Name string
	Role user.Role
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the dispatcher, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)

	return p, ok
}

type claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

func bearer(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}

	return strings.TrimSpace(token), true
}

// Authenticate extracts the principal from the Authorization header.
// A missing, malformed or expired token is errs.ErrUnauthenticated.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	raw, ok := bearer(r)
	if !ok {
		return Principal{}, fmt.Errorf("missing bearer token: %w", errs.ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	c := &claims{}
	if _, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return Principal{}, fmt.Errorf("invalid token: %w: %w", errs.ErrUnauthenticated, err)
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token subject %q: %w", c.Subject, errs.ErrUnauthenticated)
	}

	role, err := user.ParseRole(c.Role)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token role: %w: %w", errs.ErrUnauthenticated, err)
	}

	return Principal{ID: id, Name: c.Name, Role: role}, nil
}

// Issue signs a token for p valid for ttl.
func (a *Authenticator) Issue(p Principal, ttl time.Duration) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: p.Name,
		Role: p.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Allowed reports whether p holds one of roles. An empty role list admits anyone.
func Allowed(p Principal, roles []user.Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}

	return false
}
