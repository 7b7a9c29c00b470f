package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agrikart/api/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a stock decrement would go below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicateEmail is returned when a user with the same email exists.
	ErrDuplicateEmail = errors.New("email already registered")
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category        string
	Query           string
	IncludeInactive bool
	Page            int64
	Limit           int64
}

// OrderFilter narrows order listings and stats.
type OrderFilter struct {
	UserID *primitive.ObjectID
	Status string
	From   *time.Time
	To     *time.Time
	Page   int64
	Limit  int64
}

// OrderStats aggregates order counts and revenue for the admin listing.
type OrderStats struct {
	TotalOrders  int64            `json:"totalOrders"`
	TotalRevenue float64          `json:"totalRevenue"`
	ByStatus     map[string]int64 `json:"byStatus"`
}

// ProductStore persists catalog products.
//
// DecrementStock applies a conditional decrement: it fails with
// ErrInsufficientStock when the product holds fewer than qty units and with
// ErrNotFound when the product is absent or inactive. The check and the
// decrement are a single atomic write, so concurrent orders against the same
// product cannot oversell. Restock increments stock and silently no-ops on a
// missing product.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	Restock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// OrderStore persists orders. Orders are never deleted.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Update(ctx context.Context, o *models.Order) error
	List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	Stats(ctx context.Context, f OrderFilter) (*OrderStats, error)
}

// AddressStore persists user addresses. Saving or updating an address with
// IsDefault set unsets the flag on every other address of the same user.
type AddressStore interface {
	Create(ctx context.Context, a *models.Address) error
	Update(ctx context.Context, a *models.Address) error
	GetByID(ctx context.Context, id, userID primitive.ObjectID) (*models.Address, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
