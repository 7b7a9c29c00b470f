package orders

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/agrikart/api/models"
	"github.com/agrikart/api/repository"
	"github.com/agrikart/api/services/payments"
)

var (
	// ErrAdminCannotOrder rejects purchases by administrator accounts.
	ErrAdminCannotOrder = errors.New("administrators cannot place orders")
	// ErrEmptyOrder rejects orders without a single valid line item.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidQuantity rejects non-positive line quantities.
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	// ErrNotOwner rejects access to an order owned by someone else.
	ErrNotOwner = errors.New("order belongs to another user")
	// ErrCannotCancel rejects cancellation of shipped, delivered or already
	// cancelled orders.
	ErrCannotCancel = errors.New("order can no longer be cancelled")
	// ErrInvalidStatus rejects unknown target statuses.
	ErrInvalidStatus = errors.New("unknown order status")
	// ErrSignatureMismatch rejects payments whose checkout signature does not
	// verify.
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	// ErrAmountMismatch rejects payments whose gateway-authorized amount does
	// not equal the computed order total.
	ErrAmountMismatch = errors.New("paid amount does not match order total")
)

// Notifier receives order events for background email delivery. Calls must
// not block and must never fail the triggering operation.
type Notifier interface {
	OrderConfirmation(o *models.Order, email string)
	StatusUpdate(o *models.Order, email string)
	RefundConfirmation(o *models.Order, email string)
}

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// PlaceInput is the payload for placing an order.
type PlaceInput struct {
	Items           []ItemInput            `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	Notes           string                 `json:"notes"`
}

// VerifyInput carries the gateway callback for an online payment.
type VerifyInput struct {
	GatewayOrderID string     `json:"gatewayOrderId"`
	PaymentID      string     `json:"paymentId"`
	Signature      string     `json:"signature"`
	Order          PlaceInput `json:"orderData"`
}

// Service coordinates the order flow: stock reservation, order persistence,
// payment verification, cancellation with refund, and notification handoff.
// All collaborators are injected.
type Service struct {
	products repository.ProductStore
	orders   repository.OrderStore
	users    repository.UserStore
	gateway  payments.Gateway
	notifier Notifier
	log      *zap.Logger
}

func NewService(
	products repository.ProductStore,
	orders repository.OrderStore,
	users repository.UserStore,
	gateway payments.Gateway,
	notifier Notifier,
	log *zap.Logger,
) *Service {
	return &Service{
		products: products,
		orders:   orders,
		users:    users,
		gateway:  gateway,
		notifier: notifier,
		log:      log,
	}
}

// reservation tracks stock decrements applied so far, so a failure later in
// placement can put every unit back.
type reservation struct {
	productID primitive.ObjectID
	quantity  int
}

func (s *Service) release(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		if err := s.products.Restock(ctx, r.productID, r.quantity); err != nil {
			s.log.Error("failed to release reserved stock",
				zap.String("productId", r.productID.Hex()),
				zap.Int("quantity", r.quantity),
				zap.Error(err))
		}
	}
}

// reserveItems validates every line, decrements stock atomically per product
// and returns the priced order lines. On any failure it releases the units
// already reserved and returns the error untouched.
func (s *Service) reserveItems(ctx context.Context, items []ItemInput) ([]models.OrderItem, float64, error) {
	if len(items) == 0 {
		return nil, 0, ErrEmptyOrder
	}

	var (
		lines    []models.OrderItem
		reserved []reservation
		total    float64
	)
	for _, item := range items {
		if item.Quantity <= 0 {
			s.release(ctx, reserved)
			return nil, 0, ErrInvalidQuantity
		}
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			s.release(ctx, reserved)
			return nil, 0, repository.ErrNotFound
		}

		product, err := s.products.GetByID(ctx, productID)
		if err != nil {
			s.release(ctx, reserved)
			return nil, 0, err
		}
		if !product.Active {
			s.release(ctx, reserved)
			return nil, 0, repository.ErrNotFound
		}

		if err := s.products.DecrementStock(ctx, productID, item.Quantity); err != nil {
			s.release(ctx, reserved)
			return nil, 0, err
		}
		reserved = append(reserved, reservation{productID: productID, quantity: item.Quantity})

		subtotal := product.Price * float64(item.Quantity)
		total += subtotal
		lines = append(lines, models.OrderItem{
			ProductID: productID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
	}
	return lines, total, nil
}

func (s *Service) orderingUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, ErrAdminCannotOrder
	}
	return user, nil
}

// Place creates a cash-on-delivery order. Stock is reserved per item before
// the order document is written; if the write fails the reservation is
// released.
func (s *Service) Place(ctx context.Context, userID primitive.ObjectID, in PlaceInput) (*models.Order, error) {
	user, err := s.orderingUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, total, err := s.reserveItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	method := in.PaymentMethod
	if method == "" {
		method = models.PaymentCOD
	}
	order := &models.Order{
		UserID:          userID,
		Items:           lines,
		TotalAmount:     total,
		Status:          models.OrderPending,
		PaymentMethod:   method,
		PaymentStatus:   models.PaymentStatusPending,
		RefundStatus:    models.RefundNone,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.release(ctx, reservationsOf(lines))
		return nil, err
	}

	s.notifier.OrderConfirmation(order, user.Email)
	return order, nil
}

// VerifyAndPlace validates an online payment and creates the paid order.
// The signature is checked before any stock is touched; unit prices come
// from the catalog, never from the client; and when the gateway can report
// the authorized amount it must equal the computed total.
func (s *Service) VerifyAndPlace(ctx context.Context, userID primitive.ObjectID, in VerifyInput) (*models.Order, error) {
	user, err := s.orderingUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil {
		return nil, payments.ErrGatewayUnavailable
	}
	if !s.gateway.VerifySignature(in.GatewayOrderID, in.PaymentID, in.Signature) {
		return nil, ErrSignatureMismatch
	}

	lines, total, err := s.reserveItems(ctx, in.Order.Items)
	if err != nil {
		return nil, err
	}

	if intent, err := s.gateway.FetchOrder(ctx, in.GatewayOrderID); err != nil {
		// A signed payment is not rejected just because the gateway is
		// briefly unreachable for the cross-check.
		s.log.Warn("could not cross-check gateway order amount",
			zap.String("gatewayOrderId", in.GatewayOrderID),
			zap.Error(err))
	} else if intent.Amount != payments.ToMinorUnits(total) {
		s.release(ctx, reservationsOf(lines))
		return nil, ErrAmountMismatch
	}

	order := &models.Order{
		UserID:          userID,
		Items:           lines,
		TotalAmount:     total,
		Status:          models.OrderConfirmed,
		PaymentMethod:   models.PaymentOnline,
		PaymentStatus:   models.PaymentStatusPaid,
		GatewayOrderID:  in.GatewayOrderID,
		PaymentID:       in.PaymentID,
		Signature:       in.Signature,
		RefundStatus:    models.RefundNone,
		ShippingAddress: in.Order.ShippingAddress,
		Notes:           in.Order.Notes,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.release(ctx, reservationsOf(lines))
		return nil, err
	}

	s.notifier.OrderConfirmation(order, user.Email)
	return order, nil
}

func reservationsOf(lines []models.OrderItem) []reservation {
	reserved := make([]reservation, 0, len(lines))
	for _, line := range lines {
		reserved = append(reserved, reservation{productID: line.ProductID, quantity: line.Quantity})
	}
	return reserved
}

// cancel restocks every line item and, for online-paid orders, attempts a
// full refund. The order's own state change is never blocked by a refund
// failure; the refund outcome is recorded on the order instead.
func (s *Service) cancel(ctx context.Context, order *models.Order, reason string) {
	for _, item := range order.Items {
		if err := s.products.Restock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Error("restock failed during cancellation",
				zap.String("orderId", order.ID.Hex()),
				zap.String("productId", item.ProductID.Hex()),
				zap.Error(err))
		}
	}

	if order.PaidOnline() {
		switch {
		case s.gateway == nil:
			order.RefundStatus = models.RefundPending
			s.log.Warn("payment gateway unavailable, refund deferred",
				zap.String("orderId", order.ID.Hex()))
		default:
			refundID, err := s.gateway.Refund(ctx, order.PaymentID, order.TotalAmount, map[string]interface{}{
				"orderId": order.ID.Hex(),
				"reason":  reason,
			})
			if err != nil {
				order.RefundStatus = models.RefundFailed
				s.log.Error("refund attempt failed",
					zap.String("orderId", order.ID.Hex()),
					zap.String("paymentId", order.PaymentID),
					zap.Error(err))
			} else {
				order.RefundStatus = models.RefundProcessed
				order.RefundID = refundID
			}
		}
	}

	order.Status = models.OrderCancelled
}

func (s *Service) notifyStatusChange(ctx context.Context, order *models.Order) {
	user, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		s.log.Error("could not resolve order owner for notification",
			zap.String("orderId", order.ID.Hex()),
			zap.Error(err))
		return
	}
	if order.RefundStatus == models.RefundProcessed {
		s.notifier.RefundConfirmation(order, user.Email)
		return
	}
	s.notifier.StatusUpdate(order, user.Email)
}

// UpdateStatus is the administrative status transition. Moving into
// cancelled from any non-cancelled state restocks the order and initiates a
// refund for online payments. Returns the updated order and whether a refund
// was initiated.
func (s *Service) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, target string) (*models.Order, bool, error) {
	if !models.ValidOrderStatus(target) {
		return nil, false, ErrInvalidStatus
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}

	refundInitiated := false
	if target == models.OrderCancelled {
		if order.Status == models.OrderCancelled {
			return nil, false, ErrCannotCancel
		}
		s.cancel(ctx, order, "cancelled by admin")
		refundInitiated = order.PaidOnline()
	} else {
		order.Status = target
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, false, err
	}

	s.notifyStatusChange(ctx, order)
	return order, refundInitiated, nil
}

// Cancel is the self-service cancellation: owner (or admin) only, and
// rejected once the order has shipped, been delivered, or is already
// cancelled.
func (s *Service) Cancel(ctx context.Context, orderID, userID primitive.ObjectID, isAdmin bool) (*models.Order, bool, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, false, ErrNotOwner
	}
	switch order.Status {
	case models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
		return nil, false, ErrCannotCancel
	}

	s.cancel(ctx, order, "cancelled by customer")
	refundInitiated := order.PaidOnline()

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, false, err
	}

	s.notifyStatusChange(ctx, order)
	return order, refundInitiated, nil
}

// Get returns a single order, restricted to its owner unless isAdmin.
func (s *Service) Get(ctx context.Context, orderID, userID primitive.ObjectID, isAdmin bool) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrNotOwner
	}
	return order, nil
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, userID primitive.ObjectID, f repository.OrderFilter) ([]models.Order, int64, error) {
	f.UserID = &userID
	return s.orders.List(ctx, f)
}

// ListAll is the admin listing with aggregate stats.
func (s *Service) ListAll(ctx context.Context, f repository.OrderFilter) ([]models.Order, int64, *repository.OrderStats, error) {
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, 0, nil, err
	}
	stats, err := s.orders.Stats(ctx, f)
	if err != nil {
		return nil, 0, nil, err
	}
	return orders, total, stats, nil
}
