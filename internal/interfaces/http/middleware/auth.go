package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/application/agentreg"
	"github.com/restosuite/backend/internal/infrastructure/auth"
	"github.com/restosuite/backend/internal/interfaces/http/dto"
)

const bearerPrefix = "Bearer "

func extractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	return token, token != ""
}

func abortUnauthorized(c *gin.Context, message string) {
	requestID, _ := c.Get("correlation_id")
	requestIDStr, _ := requestID.(string)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message, requestIDStr))
}

// AdminAuth validates the admin JWT on back-office routes and stores the
// token subject in the context for audit trails.
func AdminAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing or malformed Authorization header")
			return
		}
		claims, err := jwtService.ValidateAdminToken(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}
		c.Set("subject", claims.Subject)
		c.Next()
	}
}

// AgentAuth authenticates vendor agents on inbound sync routes. Agents
// identify themselves with the X-Vendor-ID header and prove it with the
// shared token issued at registration. The verified vendor ID is stored in
// the context; handlers never trust a vendor ID from the request body.
func AgentAuth(agents *agentreg.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID, err := uuid.Parse(c.GetHeader("X-Vendor-ID"))
		if err != nil {
			abortUnauthorized(c, "Missing or invalid X-Vendor-ID header")
			return
		}
		token, ok := extractBearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing or malformed Authorization header")
			return
		}
		if err := agents.VerifyToken(c.Request.Context(), vendorID, token); err != nil {
			abortUnauthorized(c, "Agent authentication failed")
			return
		}
		c.Set("vendor_id", vendorID)
		c.Next()
	}
}
