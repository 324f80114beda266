package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/streamify-app/backend/internal/middleware"
	"github.com/streamify-app/backend/internal/services"
)

// UserHandler serves user discovery and the friend list
type UserHandler struct {
	friends *services.FriendService
}

func NewUserHandler(friends *services.FriendService) *UserHandler {
	return &UserHandler{friends: friends}
}

func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("", h.GetRecommendedUsers)
	g.GET("/", h.GetRecommendedUsers)
	g.GET("/friends", h.GetFriends)
}

// GetRecommendedUsers lists onboarded users the caller is not yet friends with
func (h *UserHandler) GetRecommendedUsers(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	users, err := h.friends.RecommendedUsers(c.Request().Context(), current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": users})
}

func (h *UserHandler) GetFriends(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	friends, err := h.friends.ListFriends(c.Request().Context(), current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "friends": friends})
}
