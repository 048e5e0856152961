package middleware

import (
	"net/http"

	"sakan/internal/common"
	"sakan/internal/repositories"

	"github.com/labstack/echo/v4"
)

// RBACMiddleware gates routes on the caller's profile role. Roles live
// directly on the profile row; there is no permission matrix.
type RBACMiddleware struct {
	profileRepo repositories.ProfileRepository
}

func NewRBACMiddleware(profileRepo repositories.ProfileRepository) *RBACMiddleware {
	return &RBACMiddleware{profileRepo: profileRepo}
}

// RequireRole allows the request through only when the caller holds one of
// the given roles.
func (m *RBACMiddleware) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := common.GetUserIDFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			profile, err := m.profileRepo.GetByID(c.Request().Context(), userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Profile not found")
			}
			for _, role := range roles {
				if profile.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient role")
		}
	}
}
