package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/statekit/errors"
)

// ClaimsKey is the gin context key holding the validated claims.
const ClaimsKey = "auth.claims"

// accessTokenParam carries the token for EventSource clients, which cannot
// set request headers.
const accessTokenParam = "access_token"

// AuthConfig configures HS256 bearer-token authentication. An empty secret
// disables it.
type AuthConfig struct {
	Secret   string `yaml:"secret" mapstructure:"secret"`
	Issuer   string `yaml:"issuer" mapstructure:"issuer"`
	Audience string `yaml:"audience" mapstructure:"audience"`
	// Leeway tolerates clock skew between the token issuer and this host.
	Leeway time.Duration `yaml:"leeway" mapstructure:"leeway" validate:"gte=0"`
}

// Enabled reports whether a signing secret is configured.
func (c *AuthConfig) Enabled() bool { return c.Secret != "" }

// ParseToken verifies an HS256 token against cfg and returns its claims.
func ParseToken(cfg *AuthConfig, token string) (*gojwt.RegisteredClaims, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(cfg.Audience))
	}

	claims := &gojwt.RegisteredClaims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// SignToken issues an HS256 token for subject valid for ttl. Used by the
// CLI to mint tokens for panels.
func SignToken(cfg *AuthConfig, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := gojwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    cfg.Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}
	if cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{cfg.Audience}
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// Auth returns gin middleware that rejects requests without a valid bearer
// token. The token comes from the Authorization header, or the access_token
// query parameter when the header is absent.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, reason := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, reason)
			return
		}
		claims, err := ParseToken(&cfg, token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if t := c.Query(accessTokenParam); t != "" {
			return t, ""
		}
		return "", "authorization header required"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "invalid authorization header format"
	}
	return token, ""
}

func abortUnauthorized(c *gin.Context, reason string) {
	appErr := apperrors.Unauthorized(reason)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
