package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
	"canteen/internal/identity"
)

// Handlers groups the screen handlers.
type Handlers struct {
	Auth    *AuthHandler
	Session *SessionHandler
	CSRF    *CSRFHandler
	Menu    *MenuHandler
	Orders  *OrdersHandler
	Items   *ItemsHandler
	Health  *HealthHandler
}

// RouterConfig carries the middleware the routes are mounted behind.
type RouterConfig struct {
	Guard    *Guard
	Device   echo.MiddlewareFunc
	CSRF     echo.MiddlewareFunc
	AuthRate echo.MiddlewareFunc
	Internal echo.MiddlewareFunc
	Metrics  echo.HandlerFunc
}

// RegisterRoutes mounts every screen on e.
func RegisterRoutes(e *echo.Echo, h Handlers, cfg RouterConfig) {
	e.GET("/health", h.Health.Handle)
	e.GET("/ready", h.Health.Ready)
	if cfg.Metrics != nil {
		e.GET("/metrics", cfg.Metrics, cfg.Internal)
	}

	app := e.Group("", cfg.Device, cfg.CSRF)
	public := cfg.Guard.Require(identity.Public)
	student := cfg.Guard.Require(identity.RequireRole(domain.RoleStudent))
	staff := cfg.Guard.Require(identity.RequireRole(domain.RoleStaff))

	app.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/menu")
	})
	app.GET("/csrf", h.CSRF.Handle)
	app.GET("/session", h.Session.Handle, public)

	app.GET("/student-auth", h.Auth.StudentForm)
	app.POST("/student-auth/sign-in", h.Auth.StudentSignIn, cfg.AuthRate)
	app.POST("/student-auth/sign-up", h.Auth.StudentSignUp, cfg.AuthRate)
	app.GET("/admin", h.Auth.StaffForm, public)
	app.POST("/admin/sign-in", h.Auth.StaffSignIn, cfg.AuthRate)
	app.POST("/admin/sign-up", h.Auth.StaffSignUp, cfg.AuthRate)
	app.POST("/sign-out", h.Auth.SignOut)

	app.GET("/menu", h.Menu.List, public)
	app.POST("/menu/cart", h.Menu.AddToCart, student)
	app.GET("/cart", h.Menu.Cart, student)
	app.PATCH("/cart/items/:id", h.Menu.ChangeQty, student)
	app.DELETE("/cart/items/:id", h.Menu.RemoveFromCart, student)
	app.POST("/cart/checkout", h.Menu.Checkout, student)
	app.GET("/orders/history", h.Orders.History, student)

	app.GET("/admin/dashboard", h.Items.Dashboard, staff)
	app.POST("/admin/items", h.Items.Create, staff)
	app.PUT("/admin/items/:id", h.Items.Update, staff)
	app.DELETE("/admin/items/:id", h.Items.Delete, staff)
	app.POST("/admin/items/:id/availability", h.Items.ToggleAvailability, staff)
	app.GET("/staff/orders", h.Orders.Board, staff)
	app.POST("/staff/orders/:id/status", h.Orders.Advance, staff)
}
