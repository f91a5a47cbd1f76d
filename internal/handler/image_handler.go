package handler

import (
	"net/http"
	"strconv"

	"eatoff/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ImageHandler struct {
	uc *usecase.ImageUsecase
}

func NewImageHandler(uc *usecase.ImageUsecase) *ImageHandler {
	return &ImageHandler{uc: uc}
}

type PreloadImagesRequest struct {
	Srcs []string `json:"srcs"`
}

type PreloadImagesResponse struct {
	Requested int `json:"requested"`
	Failed    int `json:"failed"`
}

func (h *ImageHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/images", h.get)
	e.POST("/images/preload", h.preload)
}

// GET /images?src=&w=&h=&name=
func (h *ImageHandler) get(c echo.Context) error {
	w, err := optionalInt(c.QueryParam("w"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid w"})
	}
	hgt, err := optionalInt(c.QueryParam("h"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid h"})
	}

	img, err := h.uc.Fetch(c.Request().Context(), usecase.FetchImageInput{
		Src:    c.QueryParam("src"),
		Width:  w,
		Height: hgt,
		Name:   c.QueryParam("name"),
	})
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}

func (h *ImageHandler) preload(c echo.Context) error {
	var req PreloadImagesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if len(req.Srcs) > 100 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "too many srcs"})
	}

	failed := h.uc.Preload(c.Request().Context(), req.Srcs)
	return c.JSON(http.StatusOK, PreloadImagesResponse{Requested: len(req.Srcs), Failed: failed})
}

func optionalInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
