package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/hoshifuri/topic-assign-api/internal/errors"
	"github.com/hoshifuri/topic-assign-api/internal/services"
)

const contextKeyEligibilityCache = "eligibility_cache"

// EligibilityCacheMiddleware attaches a fresh request-scoped eligibility
// cache to every request, so repeated can-assign checks within one request
// hit the database once.
func EligibilityCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKeyEligibilityCache, services.NewEligibilityCache())
		c.Next()
	}
}

// GetEligibilityCache retrieves the request's eligibility cache, if any.
func GetEligibilityCache(c *gin.Context) *services.EligibilityCache {
	v, exists := c.Get(contextKeyEligibilityCache)
	if !exists {
		return nil
	}
	cache, ok := v.(*services.EligibilityCache)
	if !ok {
		return nil
	}
	return cache
}

// RequireCanAssign rejects users without assignment eligibility.
func RequireCanAssign(eligibility *services.EligibilityService, auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, err := auth.GetUser(userID)
		if err != nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		ok, err := eligibility.CanAssignCached(GetEligibilityCache(c), user)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !ok {
			apierrors.Forbidden(c, "You are not allowed to assign topics")
			c.Abort()
			return
		}

		c.Next()
	}
}
