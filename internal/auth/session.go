// Package auth guards API routes with bearer tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwtverifier "github.com/okta/okta-jwt-verifier-golang"
	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/utils"
)

var (
	// ErrMissingToken is returned when the request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the token fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoIssuer is returned when token verification is requested without an issuer.
	ErrNoIssuer = errors.New("auth issuer is not configured")
)

// Claims are the verified token claims.
type Claims map[string]any

// Subject returns the "sub" claim, or "".
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Config configures the Okta verifier.
type Config struct {
	Issuer   string
	ClientID string
	Audience string
	// Dev lets every request through. Never enable outside local development.
	Dev bool
}

// OktaVerifier verifies Okta-issued access tokens.
type OktaVerifier struct {
	v *jwtverifier.JwtVerifier
}

func NewOktaVerifier(cfg Config) (*OktaVerifier, error) {
	if cfg.Issuer == "" {
		return nil, ErrNoIssuer
	}
	claims := map[string]string{}
	aud := cfg.Audience
	if aud == "" {
		aud = "api://default"
	}
	claims["aud"] = aud
	if cfg.ClientID != "" {
		claims["cid"] = cfg.ClientID
	}
	setup := jwtverifier.JwtVerifier{
		Issuer:           cfg.Issuer,
		ClaimsToValidate: claims,
	}
	return &OktaVerifier{v: setup.New()}, nil
}

func (o *OktaVerifier) Verify(_ context.Context, token string) (Claims, error) {
	jwt, err := o.v.VerifyAccessToken(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return Claims(jwt.Claims), nil
}

// DevVerifier accepts any token.
type DevVerifier struct{}

func (DevVerifier) Verify(_ context.Context, token string) (Claims, error) {
	return Claims{"sub": "dev"}, nil
}

type ctxKey struct{}

// ClaimsFrom returns the claims stored by Middleware.
func ClaimsFrom(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(Claims)
	return c, ok
}

// ExtractTokenFromHeader extracts the token from the Authorization header.
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware rejects requests without a valid bearer token: 401 when it is
// missing, 403 when it does not verify.
func Middleware(v TokenVerifier, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractTokenFromHeader(r)
			if token == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			claims, err := v.Verify(r.Context(), token)
			if err != nil {
				log.Info("token rejected", zap.String("path", r.URL.Path), zap.Error(err))
				utils.WriteError(w, http.StatusForbidden, ErrInvalidToken.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
		})
	}
}

// NewVerifier picks the verifier for cfg: DevVerifier in dev mode, Okta when
// an issuer is set, and nil when auth is off.
func NewVerifier(cfg Config) (TokenVerifier, error) {
	if cfg.Dev {
		return DevVerifier{}, nil
	}
	if cfg.Issuer == "" {
		return nil, nil
	}
	v, err := NewOktaVerifier(cfg)
	if err != nil {
		return nil, err
	}
	return v, nil
}
