package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paragoniusz-backend/internal/middleware"
	"paragoniusz-backend/internal/receipt"
)

// respondError writes err as the typed error envelope with the status mapped
// from its code.
func respondError(c *gin.Context, err error) {
	apiErr := receipt.AsAPIError(err)
	c.JSON(receipt.HTTPStatus(apiErr.Code), receipt.ErrorBody{Err: *apiErr})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, receipt.ErrorBody{
		Err: receipt.APIError{Code: receipt.CodeValidationError, Message: message},
	})
}

// currentUser pulls the authenticated user id out of the context. A missing
// id means the route was mounted without the auth middleware.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, receipt.ErrorBody{
			Err: receipt.APIError{Code: receipt.CodeUnauthorized, Message: "missing authenticated user"},
		})
		return uuid.Nil, false
	}
	return userID, true
}
