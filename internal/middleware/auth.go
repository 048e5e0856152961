package middleware

import (
	"context"
	"log"
	"net/http"

	"sakan/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware validates bearer tokens issued by the third-party auth
// provider. When a JWKS URL is configured the provider's published keys are
// used; otherwise a shared HMAC secret (local development) verifies tokens.
type AuthMiddleware struct {
	jwks       *keyfunc.JWKS
	hmacSecret []byte
}

// NewAuthMiddleware fetches the provider JWKS when jwksURL is non-empty.
func NewAuthMiddleware(jwksURL, hmacSecret string) (*AuthMiddleware, error) {
	m := &AuthMiddleware{hmacSecret: []byte(hmacSecret)}
	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshErrorHandler: func(err error) {
				log.Printf("[auth] JWKS refresh failed: %v", err)
			},
		})
		if err != nil {
			return nil, err
		}
		m.jwks = jwks
	}
	return m, nil
}

func (m *AuthMiddleware) keyFunc(token *jwt.Token) (any, error) {
	if m.jwks != nil {
		return m.jwks.Keyfunc(token)
	}
	return m.hmacSecret, nil
}

// Authenticate validates the bearer token and places the account id and email
// on the request context.
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	jwtMiddleware := echojwt.WithConfig(echojwt.Config{
		KeyFunc: m.keyFunc,
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(extractClaims(next))
	}
}

// extractClaims reads the parsed token that echo-jwt stores on the echo
// context and promotes the subject and email onto the request context.
func extractClaims(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
		}
		sub, ok := claims["sub"].(string)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing subject in token")
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid subject format")
		}

		ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
		if email, ok := claims["email"].(string); ok {
			ctx = context.WithValue(ctx, common.UserEmailKey, email)
		}
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
