package handler

import (
	"net/http"
	"strconv"

	"eatoff/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /marketplaces とメニューの公開API
type MarketplaceHandler struct {
	uc *usecase.MarketplaceUsecase
}

func NewMarketplaceHandler(uc *usecase.MarketplaceUsecase) *MarketplaceHandler {
	return &MarketplaceHandler{uc: uc}
}

func (h *MarketplaceHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/marketplaces", h.list)
	e.GET("/marketplaces/:id", h.get)
	e.GET("/restaurants/:id/menu", h.menu)
}

func (h *MarketplaceHandler) list(c echo.Context) error {
	out, err := h.uc.ListMarketplaces(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MarketplaceHandler) get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetMarketplace(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MarketplaceHandler) menu(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.ListMenu(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
