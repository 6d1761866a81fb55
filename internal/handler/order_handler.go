package handler

import (
	"net/http"

	"orderapp/internal/usecase"
	"orderapp/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// /api/orders
type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	og := g.Group("/orders")
	og.GET("", h.list)
	og.GET("/:id", h.detail)
	og.POST("", h.create)
	og.DELETE("/:id", h.delete)
	og.POST("/:id/items", h.addItem)
	og.PUT("/:id/items/:itemId", h.updateItem)
	og.DELETE("/:id/items/:itemId", h.removeItem)
	og.POST("/:id/status", h.updateStatus)
}

func (h *OrderHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c, 20)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListOrders(c.Request().Context(), usecase.ListOrdersInput{
		Page:       page,
		Limit:      limit,
		Status:     c.QueryParam("status"),
		CustomerID: c.QueryParam("customer_id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// UUIDなら注文ID、それ以外は顧客名で検索
func (h *OrderHandler) detail(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		outs, err := h.uc.ListOrdersByCustomerName(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, outs)
	}

	out, err := h.uc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req validator.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	items := make([]usecase.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, toItemInput(it))
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), usecase.CreateOrderInput{
		CustomerID:     req.CustomerID,
		Items:          items,
		DiscountAmount: req.DiscountAmount,
	})
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderLocation, "/api/orders/"+out.ID)
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) delete(c echo.Context) error {
	if err := h.uc.DeleteOrder(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHandler) addItem(c echo.Context) error {
	var req validator.OrderItemRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.AddItem(c.Request().Context(), c.Param("id"), toItemInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateItem(c echo.Context) error {
	var req validator.UpdateOrderItemRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateItem(c.Request().Context(), c.Param("id"), c.Param("itemId"), req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) removeItem(c echo.Context) error {
	if err := h.uc.RemoveItem(c.Request().Context(), c.Param("id"), c.Param("itemId")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	var req validator.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, invalidBody())
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, err)
	}

	if err := h.uc.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toItemInput(req validator.OrderItemRequest) usecase.OrderItemInput {
	return usecase.OrderItemInput{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		DiscountAmount: req.DiscountAmount,
	}
}
