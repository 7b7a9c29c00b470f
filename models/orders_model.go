package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order lifecycle statuses.
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Payment methods.
const (
	PaymentCOD    = "cod"
	PaymentOnline = "online"
)

// Payment statuses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Refund statuses.
const (
	RefundNone      = "none"
	RefundPending   = "pending"
	RefundProcessed = "processed"
	RefundFailed    = "failed"
)

var orderStatuses = map[string]bool{
	OrderPending:    true,
	OrderConfirmed:  true,
	OrderProcessing: true,
	OrderShipped:    true,
	OrderDelivered:  true,
	OrderCancelled:  true,
}

// ValidOrderStatus reports whether status is a known lifecycle status.
func ValidOrderStatus(status string) bool {
	return orderStatuses[status]
}

// OrderItem is a single line of an order. Name and price are snapshots taken
// at purchase time; later catalog edits never alter historical orders.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
}

// ShippingAddress is the address snapshot stored on the order.
type ShippingAddress struct {
	FullName      string `bson:"fullName" json:"fullName"`
	Phone         string `bson:"phone" json:"phone"`
	StreetAddress string `bson:"streetAddress" json:"streetAddress"`
	City          string `bson:"city" json:"city"`
	State         string `bson:"state" json:"state"`
	ZipCode       string `bson:"zipCode" json:"zipCode"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	Status          string             `bson:"status" json:"status"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus   string             `bson:"paymentStatus" json:"paymentStatus"`
	GatewayOrderID  string             `bson:"gatewayOrderId,omitempty" json:"gatewayOrderId,omitempty"`
	PaymentID       string             `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	Signature       string             `bson:"signature,omitempty" json:"-"`
	RefundStatus    string             `bson:"refundStatus" json:"refundStatus"`
	RefundID        string             `bson:"refundId,omitempty" json:"refundId,omitempty"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PaidOnline reports whether the order went through the payment gateway.
func (o *Order) PaidOnline() bool {
	return o.PaymentMethod == PaymentOnline && o.PaymentStatus == PaymentStatusPaid
}
