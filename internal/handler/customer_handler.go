package handler

import (
	"net/http"

	"orderapp/internal/usecase"
	"orderapp/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// /api/customers
type CustomerHandler struct {
	uc *usecase.CustomerUsecase
}

func NewCustomerHandler(uc *usecase.CustomerUsecase) *CustomerHandler {
	return &CustomerHandler{uc: uc}
}

func (h *CustomerHandler) RegisterRoutes(g *echo.Group) {
	cg := g.Group("/customers")
	cg.GET("", h.list)
	cg.GET("/:id", h.detail)
	cg.POST("", h.create)
	cg.PUT("/:id", h.update)
	cg.DELETE("/:id", h.delete)
}

func (h *CustomerHandler) list(c echo.Context) error {
	items, err := h.uc.ListCustomers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// UUIDならID、それ以外は名前で検索
func (h *CustomerHandler) detail(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		items, err := h.uc.FindCustomersByName(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, items)
	}

	cust, err := h.uc.GetCustomer(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

func (h *CustomerHandler) create(c echo.Context) error {
	var req validator.CustomerRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	cust, err := h.uc.CreateCustomer(c.Request().Context(), usecase.CustomerInput{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/customers/"+cust.ID)
	return c.JSON(http.StatusCreated, cust)
}

func (h *CustomerHandler) update(c echo.Context) error {
	var req validator.CustomerRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.UpdateCustomer(c.Request().Context(), c.Param("id"), usecase.CustomerInput{
		Name:        req.Name,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	}); err != nil {
		return writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CustomerHandler) delete(c echo.Context) error {
	if err := h.uc.DeleteCustomer(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
