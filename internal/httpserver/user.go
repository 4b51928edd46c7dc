package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/ordovik/eshop/internal/models"
	"github.com/ordovik/eshop/pkg/logging"
)

type UserHandler struct {
	DB *gorm.DB
}

// GetUser returns the identity view; the password hash never serializes.
func (h *UserHandler) GetUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathUUID(c, "userId")
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		logging.FromContext(ctx).Error("get_user_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, user)
}
