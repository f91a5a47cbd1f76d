package handler

import (
	"net/http"
	"strconv"

	"eatoff/internal/config"
	"eatoff/internal/middleware"
	"eatoff/internal/repository"
	"eatoff/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 管理者向け /admin/cart-events
type AdminCartEventHandler struct {
	uc *usecase.AdminCartEventUsecase
}

func NewAdminCartEventHandler(uc *usecase.AdminCartEventUsecase) *AdminCartEventHandler {
	return &AdminCartEventHandler{uc: uc}
}

func (h *AdminCartEventHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/admin")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.Use(middleware.AdminRoleGuard())

	g.GET("/cart-events", h.list)
}

func (h *AdminCartEventHandler) list(c echo.Context) error {
	var in usecase.ListCartEventsInput

	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
		}
		in.UserID = &id
	}
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		in.Page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		in.Limit = l
	}
	in.Action = c.QueryParam("action")

	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
