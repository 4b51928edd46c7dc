package httpserver

import "github.com/google/uuid"

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type PatchStatusRequest struct {
	Status string `json:"status"`
}

type CreateOrderItemRequest struct {
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  uint      `json:"quantity"`
	// Price overrides the product price snapshot when set, in cents.
	Price *int64 `json:"price,omitempty"`
}

type CreateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Count       uint   `json:"count"`
}

type UpdatedResponse struct {
	Updated int64 `json:"updated"`
}
