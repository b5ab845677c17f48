package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"paragoniusz-backend/internal/receipt"
)

const UserIDKey = "user_id"

// AuthMiddleware validates the Supabase access token and stores the
// authenticated user's id in the request context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			unauthorized(c, "empty token")
			return
		}

		// Supabase signs access tokens with HS256 using the project JWT secret.
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))

		if err != nil || !token.Valid {
			unauthorized(c, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "invalid token claims")
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			unauthorized(c, "missing user id in token")
			return
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			unauthorized(c, "user id in token is not a valid uuid")
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user's id set by AuthMiddleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, receipt.ErrorBody{
		Err: receipt.APIError{Code: receipt.CodeUnauthorized, Message: message},
	})
	c.Abort()
}
