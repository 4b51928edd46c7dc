package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordovik/eshop/internal/events"
	"github.com/ordovik/eshop/internal/service"
	"github.com/ordovik/eshop/pkg/logging"
)

type OrderItemHandler struct {
	Svc    *service.OrderService
	Events *events.Producer
}

func (h *OrderItemHandler) CreateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orderitem.create")

	var req CreateOrderItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.AddItem(ctx, req.OrderID, req.ProductID, req.Quantity, req.Price)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			l.Error("create_item_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	publish(c, h.Events, "order_events", item.OrderID.String(), map[string]interface{}{
		"type":     "order_item_added",
		"order_id": item.OrderID,
		"item_id":  item.ID,
	})

	return c.JSON(http.StatusCreated, item)
}

func (h *OrderItemHandler) GetItem(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	item, err := h.Svc.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order item not found")
		}
		logging.FromContext(ctx).Error("get_item_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *OrderItemHandler) DeleteItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orderitem.delete")

	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	item, err := h.Svc.RemoveItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order item not found")
		}
		l.Error("delete_item_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Events, "order_events", item.OrderID.String(), map[string]interface{}{
		"type":     "order_item_removed",
		"order_id": item.OrderID,
		"item_id":  item.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
