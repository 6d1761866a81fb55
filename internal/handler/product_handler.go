package handler

import (
	"net/http"
	"strconv"

	"orderapp/internal/usecase"
	"orderapp/internal/validator"

	"github.com/labstack/echo/v4"
)

// /api/products
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 参照は認証済みなら誰でも、変更はADMINだけ
func (h *ProductHandler) RegisterRoutes(g *echo.Group, admin echo.MiddlewareFunc) {
	pg := g.Group("/products")
	pg.GET("", h.list)
	pg.GET("/:id", h.detail)
	pg.POST("", h.create, admin)
	pg.PUT("/:id", h.update, admin)
	pg.DELETE("/:id", h.delete, admin)
}

func (h *ProductHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:  page,
		Limit: limit,
		Q:     c.QueryParam("q"),
		Sort:  c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// 数字ならID、それ以外は名前で検索
func (h *ProductHandler) detail(c echo.Context) error {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		items, err := h.uc.FindProductsByName(c.Request().Context(), idStr)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, items)
	}

	p, err := h.uc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) create(c echo.Context) error {
	var req validator.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.CreateProduct(c.Request().Context(), usecase.CreateProductInput{
		Name:          req.Name,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/products/"+strconv.FormatInt(p.ID, 10))
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) update(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req validator.UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.UpdateProduct(c.Request().Context(), id, usecase.UpdateProductInput{
		Name:  req.Name,
		Price: req.Price,
	}); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) delete(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.DeleteProduct(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func productID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidParam("id", "Product ID must be a positive integer.")
	}
	return id, nil
}

// page（default 1）/ limit（default def）
func pageParams(c echo.Context, def int) (int, int, error) {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, invalidParam("page", "Page must be a number.")
		}
		page = p
	}

	limit := def
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, invalidParam("limit", "Limit must be a number.")
		}
		limit = l
	}
	return page, limit, nil
}
