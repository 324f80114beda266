package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/streamify-app/backend/internal/middleware"
	"github.com/streamify-app/backend/internal/models"
	"github.com/streamify-app/backend/internal/services"
)

// GroupHandler handles groups and group join requests
type GroupHandler struct {
	groups *services.GroupService
}

func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// RegisterGroupRoutes registers group routes
func (h *GroupHandler) RegisterGroupRoutes(g *echo.Group) {
	g.POST("/create", h.CreateGroup)
	g.GET("", h.GetMyGroups)
	g.GET("/", h.GetMyGroups)
	g.POST("/group-request/:id", h.SendGroupRequest)
	g.PUT("/group-request/:id/accept", h.AcceptGroupRequest)
	g.PUT("/group-request/:id/decline", h.DeclineGroupRequest)
	g.GET("/group-requests", h.GetGroupRequests)
	g.GET("/outgoing-group-requests", h.GetOutgoingGroupRequests)
	g.GET("/:id", h.GetGroup)
}

func (h *GroupHandler) CreateGroup(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateGroupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	group, err := h.groups.CreateGroup(c.Request().Context(), current.ID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Group created successfully", "group": group})
}

func (h *GroupHandler) GetMyGroups(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	groups, err := h.groups.ListMyGroups(c.Request().Context(), current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "groups": groups})
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	if _, err := middleware.CurrentUser(c); err != nil {
		return err
	}
	groupID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	group, err := h.groups.GetGroup(c.Request().Context(), groupID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "group": group})
}

// SendGroupRequest asks to join the group named by :id. The body may name
// the recipient member.
func (h *GroupHandler) SendGroupRequest(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	groupID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var body models.SendGroupRequestBody
	if c.Request().ContentLength != 0 {
		if err := bind(c, &body); err != nil {
			return err
		}
	}

	req, err := h.groups.SendGroupRequest(c.Request().Context(), current.ID, groupID, body.RecipientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Group join request sent", "request": req})
}

func (h *GroupHandler) AcceptGroupRequest(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	requestID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	group, err := h.groups.AcceptGroupRequest(c.Request().Context(), requestID, current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Member added to group", "group": group})
}

func (h *GroupHandler) DeclineGroupRequest(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	requestID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req, err := h.groups.DeclineGroupRequest(c.Request().Context(), requestID, current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Group request declined", "request": req})
}

func (h *GroupHandler) GetGroupRequests(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	requests, err := h.groups.ListGroupRequests(c.Request().Context(), current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "requests": requests})
}

func (h *GroupHandler) GetOutgoingGroupRequests(c echo.Context) error {
	current, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}
	requests, err := h.groups.ListOutgoingGroupRequests(c.Request().Context(), current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "requests": requests})
}
