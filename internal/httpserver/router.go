package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ordovik/eshop/internal/middleware/accessgate"
)

type Deps struct {
	Gate     *accessgate.Gate
	Auth     *AuthHandler
	Orders   *OrderHandler
	Items    *OrderItemHandler
	Products *ProductHandler
	Users    *UserHandler
}

// Register wires every route with its access policy. The policies are the
// whole authorization configuration; handlers never re-check roles or owners.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	public := accessgate.Policy{Public: true}
	adminOnly := accessgate.Policy{Roles: []string{"admin"}}
	ownerOnly := accessgate.Policy{OwnerParam: "userId"}

	auth := e.Group("/auth", d.Gate.Require(public))
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)

	products := e.Group("/products")
	products.GET("", d.Products.GetProducts, d.Gate.Require(public))
	products.GET("/:id", d.Products.GetProduct, d.Gate.Require(public))
	products.POST("", d.Products.CreateProduct, d.Gate.Require(adminOnly))
	products.PATCH("/:id", d.Products.PatchProduct, d.Gate.Require(adminOnly))
	products.DELETE("/:id", d.Products.DeleteProduct, d.Gate.Require(adminOnly))

	users := e.Group("/users", d.Gate.Require(ownerOnly))
	users.GET("/:userId", d.Users.GetUser)

	orders := e.Group("/orders", d.Gate.Require(ownerOnly))
	orders.GET("/user/:userId", d.Orders.GetOrders)
	orders.GET("/:id/user/:userId", d.Orders.GetOrder)
	orders.POST("/user/:userId", d.Orders.CreateOrder)
	orders.PATCH("/:id/status/user/:userId", d.Orders.PatchStatus)
	orders.DELETE("/:id/user/:userId", d.Orders.DeleteOrder)

	items := e.Group("/order-items", d.Gate.Require(ownerOnly))
	items.POST("/user/:userId", d.Items.CreateItem)
	items.GET("/:id/user/:userId", d.Items.GetItem)
	items.DELETE("/:id/user/:userId", d.Items.DeleteItem)
}
