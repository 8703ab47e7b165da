// utils/auth.go
package utils

import (
	"errors"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clearline-hq/partnerhub_backend/models"
)

// GetUserIDFromToken returns the authenticated user's id from the JWT claims
// the middleware stored in the context.
func GetUserIDFromToken(c echo.Context) (primitive.ObjectID, error) {
	userID, ok := c.Get("userId").(string)
	if !ok || userID == "" {
		return primitive.NilObjectID, errors.New("user ID not found in token")
	}
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, errors.New("invalid user ID format in token")
	}
	return objID, nil
}

// RoleFromContext maps the authenticated user type onto a core role. The core
// itself never reads the context; handlers resolve the role here and pass it
// explicitly.
func RoleFromContext(c echo.Context) models.Role {
	userType, _ := c.Get("userType").(string)
	if userType == string(models.RoleAdmin) {
		return models.RoleAdmin
	}
	return models.RolePartner
}
