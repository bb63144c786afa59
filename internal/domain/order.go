package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusReturned},
}

// CanTransitionTo reports whether the status machine allows moving to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

func (s OrderStatus) String() string { return string(s) }

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusPaid:    {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
	PaymentStatusFailed:  {PaymentStatusPaid},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed,
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) String() string { return string(s) }

type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
)

type Address struct {
	ID         string `bson:"id" json:"id"`
	Label      string `bson:"label,omitempty" json:"label,omitempty"`
	FullName   string `bson:"full_name" json:"full_name"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Buyer is the frozen contact snapshot taken at checkout.
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type TrackingInfo struct {
	Carrier   string     `json:"carrier"`
	Number    string     `json:"number"`
	ShippedAt *time.Time `json:"shipped_at,omitempty"`
}

// OrderItem is an independently frozen line: the product snapshot and price
// never change after the order is created.
type OrderItem struct {
	ProductID     string            `json:"product_id"`
	Product       ProductSnapshot   `json:"product"`
	Quantity      int               `json:"quantity"`
	UnitPrice     float64           `json:"unit_price"`
	LineTotal     float64           `json:"line_total"`
	Variants      []SelectedVariant `json:"variants,omitempty"`
	TrackQuantity bool              `json:"track_quantity"`
	Status        FulfillmentStatus `json:"status"`
	Tracking      *TrackingInfo     `json:"tracking,omitempty"`
}

type Payment struct {
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	FailedAt      *time.Time    `json:"failed_at,omitempty"`
	RefundedAt    *time.Time    `json:"refunded_at,omitempty"`
}

// Order is append-only after creation apart from status, payment, tracking
// and refund/cancellation metadata. Orders are never hard-deleted.
type Order struct {
	ID                  uuid.UUID   `json:"id"`
	OrderNumber         string      `json:"order_number"`
	UserID              string      `json:"user_id"`
	Buyer               Buyer       `json:"buyer"`
	Items               []OrderItem `json:"items"`
	Totals              Totals      `json:"totals"`
	ShippingAddress     Address     `json:"shipping_address"`
	BillingAddress      Address     `json:"billing_address"`
	Coupons             []Discount  `json:"coupons,omitempty"`
	Payment             Payment     `json:"payment"`
	Status              OrderStatus `json:"status"`
	SpecialInstructions string      `json:"special_instructions,omitempty"`
	RefundRequested     bool        `json:"refund_requested"`
	RefundReason        string      `json:"refund_reason,omitempty"`
	CancelledAt         *time.Time  `json:"cancelled_at,omitempty"`
	CancelReason        string      `json:"cancel_reason,omitempty"`
	DeliveredAt         *time.Time  `json:"delivered_at,omitempty"`
	IdempotencyKey      string      `json:"-"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// NewOrderNumber generates a human-shareable order number, e.g.
// ORD-20260823-7F3A21BC.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
