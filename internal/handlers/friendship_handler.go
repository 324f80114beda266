package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/streamify-app/backend/internal/middleware"
	"github.com/streamify-app/backend/internal/services"
)

// FriendshipHandler handles HTTP requests related to friend requests
type FriendshipHandler struct {
	friends *services.FriendService
}

// NewFriendshipHandler creates a new FriendshipHandler
func NewFriendshipHandler(friends *services.FriendService) *FriendshipHandler {
	return &FriendshipHandler{friends: friends}
}

// RegisterFriendshipRoutes registers friend request routes
func (h *FriendshipHandler) RegisterFriendshipRoutes(g *echo.Group) {
	g.POST("/friend-request/:id", h.SendFriendRequest)
	g.PUT("/friend-request/:id/accept", h.AcceptFriendRequest)
	g.PUT("/friend-request/:id/decline", h.DeclineFriendRequest)
	g.GET("/friend-requests", h.GetIncomingFriendRequests)
	g.GET("/outgoing-friend-requests", h.GetOutgoingFriendRequests)
}

// SendFriendRequest sends a request to the user named by :id
func (h *FriendshipHandler) SendFriendRequest(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	recipientID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.friends.SendFriendRequest(c.Request().Context(), current.ID, recipientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "request": req})
}

func (h *FriendshipHandler) AcceptFriendRequest(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	requestID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.friends.AcceptFriendRequest(c.Request().Context(), requestID, current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Friend request accepted", "request": req})
}

func (h *FriendshipHandler) DeclineFriendRequest(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	requestID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.friends.DeclineFriendRequest(c.Request().Context(), requestID, current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Friend request declined", "request": req})
}

func (h *FriendshipHandler) GetIncomingFriendRequests(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	requests, err := h.friends.ListIncoming(c.Request().Context(), current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "requests": requests})
}

func (h *FriendshipHandler) GetOutgoingFriendRequests(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	requests, err := h.friends.ListOutgoing(c.Request().Context(), current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "requests": requests})
}
