package domain

import (
	"fmt"
	"time"
)

// OrderStatus is the kitchen state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusInProgress OrderStatus = "In Progress"
	StatusComplete   OrderStatus = "Complete"
)

// ParseOrderStatus accepts the exact status labels.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case StatusPending, StatusInProgress, StatusComplete:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, s)
}

// CanAdvanceTo reports whether the kitchen may move an order from s to next.
// Orders only move forward one step at a time.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusComplete
	}
	return false
}

// OrderLine is a snapshot of a menu item at ordering time.
type OrderLine struct {
	ItemID string  `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Qty    int     `json:"qty"`
}

// Order is a placed order.
type Order struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Items        []OrderLine `json:"items"`
	Total        float64     `json:"total"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	CustomerName string      `json:"customer_name,omitempty"`
}
