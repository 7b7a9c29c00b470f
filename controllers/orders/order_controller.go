package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agrikart/api/middlewares"
	"github.com/agrikart/api/repository"
	"github.com/agrikart/api/responses"
	"github.com/agrikart/api/services/orders"
	"github.com/agrikart/api/services/payments"
)

const requestTimeout = 10 * time.Second

// OrderController exposes the order flow over HTTP.
type OrderController struct {
	service *orders.Service
}

func NewOrderController(service *orders.Service) *OrderController {
	return &OrderController{service: service}
}

func callerID(c *fiber.Ctx) (primitive.ObjectID, error) {
	userId, ok := c.Locals("userId").(string)
	if !ok || userId == "" {
		return primitive.NilObjectID, errors.New("missing user id")
	}
	return primitive.ObjectIDFromHex(userId)
}

// failFor maps the order-flow error taxonomy onto HTTP statuses. Everything
// unexpected collapses to a generic 500.
func failFor(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return responses.Fail(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrInsufficientStock):
		return responses.Fail(c, fiber.StatusBadRequest, "Insufficient stock for one or more items")
	case errors.Is(err, orders.ErrAdminCannotOrder):
		return responses.Fail(c, fiber.StatusForbidden, "Administrators cannot place orders")
	case errors.Is(err, orders.ErrNotOwner):
		return responses.Fail(c, fiber.StatusForbidden, "You do not have access to this order")
	case errors.Is(err, orders.ErrCannotCancel):
		return responses.Fail(c, fiber.StatusConflict, "Order can no longer be cancelled")
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidStatus):
		return responses.Fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrSignatureMismatch):
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid payment signature")
	case errors.Is(err, orders.ErrAmountMismatch):
		return responses.Fail(c, fiber.StatusBadRequest, "Paid amount does not match order total")
	case errors.Is(err, payments.ErrGatewayUnavailable):
		return responses.Fail(c, fiber.StatusServiceUnavailable, "Payment gateway unavailable")
	default:
		return responses.Fail(c, fiber.StatusInternalServerError, "Something went wrong")
	}
}

// Place handles POST /orders (cash on delivery).
func (ct *OrderController) Place(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userID, err := callerID(c)
	if err != nil {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}

	var in orders.PlaceInput
	if err := c.BodyParser(&in); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	order, err := ct.service.Place(ctx, userID, in)
	if err != nil {
		return failFor(c, err)
	}

	return responses.Created(c, "Order placed successfully", &fiber.Map{
		"order": order,
	})
}

// ListMine handles GET /orders/my-orders.
func (ct *OrderController) ListMine(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userID, err := callerID(c)
	if err != nil {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}

	f := orderFilterFromQuery(c)
	list, total, err := ct.service.ListMine(ctx, userID, f)
	if err != nil {
		return failFor(c, err)
	}

	return responses.Ok(c, "Orders fetched successfully", &fiber.Map{
		"orders":      list,
		"totalOrders": total,
		"currentPage": f.Page,
		"totalPages":  totalPages(total, f.Limit),
	})
}

// Get handles GET /orders/:id.
func (ct *OrderController) Get(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userID, err := callerID(c)
	if err != nil {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}
	orderID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid order ID format")
	}

	order, err := ct.service.Get(ctx, orderID, userID, middlewares.IsAdmin(c))
	if err != nil {
		return failFor(c, err)
	}

	return responses.Ok(c, "Order fetched successfully", &fiber.Map{
		"order": order,
	})
}

// ListAll handles GET /orders (admin) with status/date filters and stats.
func (ct *OrderController) ListAll(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	f := orderFilterFromQuery(c)
	list, total, stats, err := ct.service.ListAll(ctx, f)
	if err != nil {
		return failFor(c, err)
	}

	return responses.Ok(c, "Orders fetched successfully", &fiber.Map{
		"orders":      list,
		"totalOrders": total,
		"currentPage": f.Page,
		"totalPages":  totalPages(total, f.Limit),
		"stats":       stats,
	})
}

// UpdateStatus handles PATCH /orders/:id/status (admin).
func (ct *OrderController) UpdateStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	orderID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid order ID format")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	order, refunded, err := ct.service.UpdateStatus(ctx, orderID, body.Status)
	if err != nil {
		return failFor(c, err)
	}

	message := "Order status updated"
	if refunded {
		message = "Order status updated, refund initiated"
	}
	return responses.Ok(c, message, &fiber.Map{
		"order": order,
	})
}

// Cancel handles PATCH /orders/:id/cancel (owner or admin).
func (ct *OrderController) Cancel(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userID, err := callerID(c)
	if err != nil {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}
	orderID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid order ID format")
	}

	order, refunded, err := ct.service.Cancel(ctx, orderID, userID, middlewares.IsAdmin(c))
	if err != nil {
		return failFor(c, err)
	}

	message := "Order cancelled"
	if refunded {
		message = "Order cancelled, refund initiated"
	}
	return responses.Ok(c, message, &fiber.Map{
		"order": order,
	})
}

func orderFilterFromQuery(c *fiber.Ctx) repository.OrderFilter {
	f := repository.OrderFilter{
		Status: c.Query("status"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 10),
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		f.From = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	return f
}

func queryInt(c *fiber.Ctx, key string, def int64) int64 {
	v, err := strconv.ParseInt(c.Query(key, strconv.FormatInt(def, 10)), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func totalPages(total, limit int64) int64 {
	if limit < 1 {
		limit = 10
	}
	return (total + limit - 1) / limit
}
