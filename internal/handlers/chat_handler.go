package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/streamify-app/backend/internal/middleware"
	"github.com/streamify-app/backend/internal/services"
)

// ChatHandler issues chat client tokens
type ChatHandler struct {
	auth *services.AuthService
}

func NewChatHandler(auth *services.AuthService) *ChatHandler {
	return &ChatHandler{auth: auth}
}

func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.GET("/token", h.GetToken)
}

func (h *ChatHandler) GetToken(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	token, err := h.auth.ChatToken(current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}
