package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ordovik/eshop/internal/events"
	"github.com/ordovik/eshop/internal/service"
	"github.com/ordovik/eshop/pkg/logging"
)

type OrderHandler struct {
	Svc    *service.OrderService
	Events *events.Producer
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	userID, err := pathUUID(c, "userId")
	if err != nil {
		return err
	}

	order, err := h.Svc.CreateOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrOwnerNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("create_order_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Events, "order_events", order.ID.String(), map[string]interface{}{
		"type":     "order_created",
		"order_id": order.ID,
		"user_id":  order.UserID,
	})

	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := pathUUID(c, "userId")
	if err != nil {
		return err
	}

	orders, err := h.Svc.ListByUser(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("list_orders_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathUUID(c, "userId")
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		logging.FromContext(ctx).Error("get_order_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) PatchStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.patch_status")

	orderID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req PatchStatusRequest
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	updated, err := h.Svc.Transition(ctx, orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrInvalidTransition):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			l.Error("patch_status_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	publish(c, h.Events, "order_events", orderID.String(), map[string]interface{}{
		"type":     "order_status_changed",
		"order_id": orderID,
		"status":   req.Status,
	})

	return c.JSON(http.StatusOK, UpdatedResponse{Updated: updated})
}

func (h *OrderHandler) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteOrder(ctx, orderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		logging.FromContext(ctx).Error("delete_order_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	publish(c, h.Events, "order_events", orderID.String(), map[string]interface{}{
		"type":     "order_deleted",
		"order_id": orderID,
	})

	return c.NoContent(http.StatusNoContent)
}
