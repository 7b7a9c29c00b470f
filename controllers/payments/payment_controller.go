package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agrikart/api/repository"
	"github.com/agrikart/api/responses"
	"github.com/agrikart/api/services/orders"
	"github.com/agrikart/api/services/payments"
)

const requestTimeout = 10 * time.Second

// PaymentController creates gateway checkout sessions and verifies completed
// payments.
type PaymentController struct {
	gateway payments.Gateway
	service *orders.Service
}

func NewPaymentController(gateway payments.Gateway, service *orders.Service) *PaymentController {
	return &PaymentController{gateway: gateway, service: service}
}

// CreateOrder handles POST /payments/create-order. It opens a checkout
// session at the gateway and returns the intent id plus the public key the
// frontend needs; the secret never leaves the server.
func (ct *PaymentController) CreateOrder(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	if ct.gateway == nil {
		return responses.Fail(c, fiber.StatusServiceUnavailable, "Payment gateway unavailable")
	}

	var body struct {
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}
	if err := c.BodyParser(&body); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if body.Amount <= 0 {
		return responses.Fail(c, fiber.StatusBadRequest, "Amount must be positive")
	}

	intent, err := ct.gateway.CreateOrder(ctx, body.Amount, body.Currency)
	if err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Failed to create payment order")
	}

	return responses.Ok(c, "Payment order created", &fiber.Map{
		"gatewayOrderId": intent.ID,
		"amount":         intent.Amount,
		"currency":       intent.Currency,
		"keyId":          ct.gateway.KeyID(),
	})
}

// Verify handles POST /payments/verify: signature check, stock reservation
// and creation of the paid order in one pass.
func (ct *PaymentController) Verify(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userId, ok := c.Locals("userId").(string)
	if !ok || userId == "" {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}
	userID, err := primitive.ObjectIDFromHex(userId)
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid user ID format")
	}

	var in orders.VerifyInput
	if err := c.BodyParser(&in); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if in.GatewayOrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return responses.Fail(c, fiber.StatusBadRequest, "Missing payment verification fields")
	}

	order, err := ct.service.VerifyAndPlace(ctx, userID, in)
	if err != nil {
		return verifyFailure(c, err)
	}

	return responses.Created(c, "Payment verified, order confirmed", &fiber.Map{
		"order": order,
	})
}

func verifyFailure(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orders.ErrSignatureMismatch):
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid payment signature")
	case errors.Is(err, orders.ErrAmountMismatch):
		return responses.Fail(c, fiber.StatusBadRequest, "Paid amount does not match order total")
	case errors.Is(err, orders.ErrAdminCannotOrder):
		return responses.Fail(c, fiber.StatusForbidden, "Administrators cannot place orders")
	case errors.Is(err, payments.ErrGatewayUnavailable):
		return responses.Fail(c, fiber.StatusServiceUnavailable, "Payment gateway unavailable")
	case errors.Is(err, orders.ErrEmptyOrder), errors.Is(err, orders.ErrInvalidQuantity):
		return responses.Fail(c, fiber.StatusBadRequest, err.Error())
	default:
		return orderErrFallback(c, err)
	}
}

func orderErrFallback(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return responses.Fail(c, fiber.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrInsufficientStock):
		return responses.Fail(c, fiber.StatusBadRequest, "Insufficient stock for one or more items")
	default:
		return responses.Fail(c, fiber.StatusInternalServerError, "Something went wrong")
	}
}
