package middleware

import (
  "fmt"
  "net/http"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"

  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/requestdata"
)

type AuthMiddleware struct {
  log          *logger.Logger
  jwtSecretKey string
}

func NewAuthMiddleware(log *logger.Logger, jwtSecretKey string) *AuthMiddleware {
  return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), jwtSecretKey: jwtSecretKey}
}

// RequireAuth validates the bearer token and stashes user, tenant, and
// network attribution on the request context for everything downstream.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
  return func(c *gin.Context) {
    tokenString := extractBearerToken(c)
    if tokenString == "" {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    claims := jwt.MapClaims{}
    parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
      if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
        return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
      }
      return []byte(am.jwtSecretKey), nil
    })
    if err != nil || !parsed.Valid {
      c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
      return
    }
    userID, err := uuid.Parse(stringClaim(claims, "sub"))
    if err != nil || userID == uuid.Nil {
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
      return
    }
    tenantID := stringClaim(claims, "tenant_id")
    if tenantID == "" {
      c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
      return
    }
    rd := &requestdata.RequestData{
      TokenString: tokenString,
      UserID:      userID,
      TenantID:    tenantID,
      Network: requestdata.NetworkContext{
        IPAddress: c.ClientIP(),
        UserAgent: c.GetHeader("User-Agent"),
        Country:   c.GetHeader("CF-IPCountry"),
      },
    }
    c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
    c.Next()
  }
}

func extractBearerToken(c *gin.Context) string {
  authHeader := c.GetHeader("Authorization")
  if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
    return authHeader[7:]
  }
  return ""
}

func stringClaim(claims jwt.MapClaims, key string) string {
  if v, ok := claims[key].(string); ok {
    return v
  }
  return ""
}
