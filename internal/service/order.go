package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordovik/eshop/internal/models"
	"github.com/ordovik/eshop/pkg/logging"
)

// OrderService owns the order status state machine and keeps the stored total
// equal to the sum of item price*quantity across item mutations.
type OrderService struct {
	DB *gorm.DB
}

var legalTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:      {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {},
	models.OrderStatusCancelled: {},
}

func validateTransition(current, next string) error {
	allowed, ok := legalTransitions[current]
	if !ok {
		// a status outside the table means the row itself is corrupt
		return fmt.Errorf("%w: unknown order status %q", ErrInternal, current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}

// CreateOrder opens an empty Pending order for an existing user.
func (s *OrderService) CreateOrder(ctx context.Context, ownerID uuid.UUID) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.create")

	var owner models.User
	if err := s.DB.WithContext(ctx).First(&owner, "id = ?", ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOwnerNotFound
		}
		l.Error("create_order_error", "error", err)
		return nil, err
	}

	order := &models.Order{
		ID:     uuid.New(),
		UserID: ownerID,
		Status: models.OrderStatusPending,
		Total:  0,
	}
	if err := s.DB.WithContext(ctx).Create(order).Error; err != nil {
		l.Error("create_order_error", "error", err)
		return nil, err
	}

	l.Info("create_order_success", "order_id", order.ID)
	return order, nil
}

// Transition moves an order to next if the state machine allows it. The write
// is conditional on the status read just before it, so a concurrent transition
// cannot be silently overwritten; the loser sees ErrInvalidTransition.
func (s *OrderService) Transition(ctx context.Context, orderID uuid.UUID, next string) (int64, error) {
	l := logging.FromContext(ctx).With("svc", "order.transition", "order_id", orderID)

	var order models.Order
	if err := s.DB.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrOrderNotFound
		}
		l.Error("transition_error", "error", err)
		return 0, err
	}

	if err := validateTransition(order.Status, next); err != nil {
		l.Warn("transition_rejected", "from", order.Status, "to", next)
		return 0, err
	}

	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		Update("status", next)
	if res.Error != nil {
		l.Error("transition_error", "error", res.Error)
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		l.Warn("transition_lost_race", "from", order.Status, "to", next)
		return 0, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
	}

	l.Info("transition_success", "from", order.Status, "to", next)
	return res.RowsAffected, nil
}

// AdjustTotal bumps the order total by delta with a single SQL increment.
func (s *OrderService) AdjustTotal(ctx context.Context, orderID uuid.UUID, delta int64) error {
	return adjustTotal(s.DB.WithContext(ctx), orderID, delta)
}

func adjustTotal(tx *gorm.DB, orderID uuid.UUID, delta int64) error {
	res := tx.Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("total", gorm.Expr("total + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// AddItem creates a line item and bumps the order total in one transaction.
// The price snapshots the product's current price unless priceOverride is set;
// it never changes afterwards.
func (s *OrderService) AddItem(ctx context.Context, orderID, productID uuid.UUID, quantity uint, priceOverride *int64) (*models.OrderItem, error) {
	l := logging.FromContext(ctx).With("svc", "order.add_item", "order_id", orderID)

	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}

	var item *models.OrderItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		var price int64
		if priceOverride != nil {
			price = *priceOverride
		} else {
			var product models.Product
			if err := tx.First(&product, "id = ?", productID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %s not found", ErrValidation, productID)
				}
				return err
			}
			price = product.Price
		}
		if price < 0 {
			return fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}

		item = &models.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     price,
		}
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return adjustTotal(tx, orderID, price*int64(quantity))
	})
	if err != nil {
		l.Warn("add_item_failed", "error", err)
		return nil, err
	}

	l.Info("add_item_success", "item_id", item.ID)
	return item, nil
}

// RemoveItem deletes a line item and subtracts its subtotal in one transaction.
func (s *OrderService) RemoveItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	l := logging.FromContext(ctx).With("svc", "order.remove_item", "item_id", itemID)

	var item models.OrderItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		if err := tx.Delete(&models.OrderItem{}, "id = ?", itemID).Error; err != nil {
			return err
		}
		return adjustTotal(tx, item.OrderID, -item.Price*int64(item.Quantity))
	})
	if err != nil {
		l.Warn("remove_item_failed", "error", err)
		return nil, err
	}

	l.Info("remove_item_success", "order_id", item.OrderID)
	return &item, nil
}

func (s *OrderService) GetItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := s.DB.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetOrder loads one order with its items, scoped to the owning user.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("Items").
		First(&order, "id = ? AND user_id = ?", orderID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteOrder removes an order and its items together.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", orderID).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Order{}, "id = ?", orderID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}
