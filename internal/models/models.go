package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"  json:"email"`
	Name         string    `gorm:"not null"              json:"name"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	Role         string    `gorm:"not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null"             json:"name"`
	Description string    `json:"description"`
	Price       int64     `gorm:"not null"             json:"price"` // cents
	Count       uint      `json:"count"`
}

const (
	OrderStatusPending   = "Pending"
	OrderStatusPaid      = "Paid"
	OrderStatusShipped   = "Shipped"
	OrderStatusCancelled = "Cancelled"
)

type Order struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"       json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;index;not null"   json:"user_id"`
	Status    string      `gorm:"not null;default:Pending"   json:"status"`
	Total     int64       `gorm:"not null;default:0"         json:"total"` // cents, kept equal to the sum of item price*quantity
	Items     []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;index;not null"    json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null"          json:"product_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"  json:"quantity"`
	Price     int64     `gorm:"not null"                    json:"price"` // cents, snapshot at creation
}
