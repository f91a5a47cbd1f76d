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

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartItemRequest struct {
	MenuItemID          int64  `json:"menu_item_id"`
	Quantity            int64  `json:"quantity"`
	SpecialInstructions string `json:"special_instructions"`
}

type UpdateCartItemRequest struct {
	Quantity *int64 `json:"quantity"`
}

// GET /cart は未ログインでも空カートを返す。更新系はサインイン必須。
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart")
	g.Use(middleware.OptionalAuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.getCart)

	signedIn := middleware.RequireSignIn()
	g.POST("/items", h.addItem, signedIn)
	g.PATCH("/items/:menuItemId", h.patchItem, signedIn)
	g.DELETE("/items/:menuItemId", h.deleteItem, signedIn)
	g.DELETE("", h.clear, signedIn)
	g.POST("/switch/:id/confirm", h.confirmSwitch, signedIn)
	g.POST("/switch/:id/cancel", h.cancelSwitch, signedIn)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, _ := getUserIDFromContext(c)

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// 別レストランの商品なら 409 switch_required（カートは変わらない）
func (h *CartHandler) addItem(c echo.Context) error {
	userID, _ := getUserIDFromContext(c)

	var req AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AddToCart(c.Request().Context(), userID, usecase.AddCartInput{
		MenuItemID:          req.MenuItemID,
		Quantity:            req.Quantity,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		return writeError(c, err)
	}

	if out.Status == usecase.AddStatusSwitchRequired {
		return c.JSON(http.StatusConflict, out)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) confirmSwitch(c echo.Context) error {
	userID, _ := getUserIDFromContext(c)

	out, err := h.uc.ConfirmSwitch(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) cancelSwitch(c echo.Context) error {
	userID, _ := getUserIDFromContext(c)

	out, err := h.uc.CancelSwitch(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) patchItem(c echo.Context) error {
	userID, _ := getUserIDFromContext(c)

	itemID, err := strconv.ParseInt(c.Param("menuItemId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req UpdateCartItemRequest
	if err := c.Bind(&req); err != nil || req.Quantity == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateCartItem(c.Request().Context(), userID, itemID, *req.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	userID, _ := getUserIDFromContext(c)

	itemID, err := strconv.ParseInt(c.Param("menuItemId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.DeleteCartItem(c.Request().Context(), userID, itemID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	userID, _ := getUserIDFromContext(c)

	out, err := h.uc.ClearCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
