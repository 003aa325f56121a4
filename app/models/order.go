package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusCooking        OrderStatus = "cooking"
	OrderStatusServing        OrderStatus = "serving"
	OrderStatusServed         OrderStatus = "served"
	OrderStatusWaitingPayment OrderStatus = "waiting_payment"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s *OrderStatus) Scan(value interface{}) error {
	*s = OrderStatus(value.(string))
	return nil
}

func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Terminal reports whether no further transition is expected
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// next holds the single forward transition for each non-terminal status.
// Cancellation is reachable from any non-terminal status and is handled
// separately.
var next = map[OrderStatus]OrderStatus{
	OrderStatusPending:        OrderStatusCooking,
	OrderStatusCooking:        OrderStatusServing,
	OrderStatusServing:        OrderStatusServed,
	OrderStatusServed:         OrderStatusWaitingPayment,
	OrderStatusWaitingPayment: OrderStatusCompleted,
}

// CanTransitionTo reports whether target is a legal next status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	return next[s] == target
}

// Payment methods recorded at completion. Payment is recorded, not processed.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

// TableStatus values
const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableReserved  = "reserved"
	TableDirty     = "dirty"
)

// Table represents a restaurant table
type Table struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Number         string         `gorm:"not null" json:"number"`
	Floor          int            `gorm:"default:1" json:"floor"`
	Capacity       int            `json:"capacity"`
	Status         string         `gorm:"default:available" json:"status"`
	CurrentOrderID *uint          `json:"current_order_id,omitempty"` // Set iff a non-terminal order occupies the table
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	CurrentOrder *Order `gorm:"foreignKey:CurrentOrderID" json:"current_order,omitempty"`
}

// BoxFee is the surcharge per takeaway box
const BoxFee = 100.0

// Order represents a customer order
type Order struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	OrderNumber   string      `gorm:"unique;not null" json:"order_number"`
	TableID       uint        `gorm:"index" json:"table_id"`
	Table         *Table      `gorm:"foreignKey:TableID" json:"table,omitempty"`
	CustomerName  string      `json:"customer_name"`
	CustomerClass string      `json:"customer_class"`
	Items         []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Status        OrderStatus `gorm:"index" json:"status"`
	TotalAmount   float64     `json:"total_amount"` // Computed once at creation, immutable
	ChefName      string      `json:"chef_name"`
	ServerName    string      `json:"server_name"`
	PaymentMethod string      `json:"payment_method"` // Set only at completion
	BoxCount      int         `json:"box_count"`
	HasBag        bool        `json:"has_bag"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"` // FIFO kitchen ordering and session bucketing
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem is one line of an order; name and price are snapshotted at
// order time and immune to later menu changes.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"index" json:"order_id"`
	MenuItemID uint      `gorm:"index" json:"menu_item_id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	Position   int       `gorm:"default:0" json:"position"`
	IsCooked   bool      `gorm:"default:false" json:"is_cooked"` // Meaningful while the order is cooking
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Table) TableName() string {
	return "tables"
}

func (Order) TableName() string {
	return "orders"
}

func (OrderItem) TableName() string {
	return "order_items"
}
