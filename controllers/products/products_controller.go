package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agrikart/api/middlewares"
	"github.com/agrikart/api/models"
	"github.com/agrikart/api/repository"
	"github.com/agrikart/api/responses"
)

const requestTimeout = 10 * time.Second

// ProductController manages the catalog.
type ProductController struct {
	products repository.ProductStore
}

func NewProductController(products repository.ProductStore) *ProductController {
	return &ProductController{products: products}
}

type productRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Stock       int      `json:"stock"`
	Unit        string   `json:"unit"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
}

func (r *productRequest) validate() string {
	switch {
	case r.Name == "":
		return "Product name is required"
	case !models.ValidCategory(r.Category):
		return "Unknown product category"
	case r.Price < 0:
		return "Price cannot be negative"
	case r.Stock < 0:
		return "Stock cannot be negative"
	default:
		return ""
	}
}

// Add handles POST /products (admin).
func (ct *ProductController) Add(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return responses.Fail(c, fiber.StatusBadRequest, msg)
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		Unit:        req.Unit,
		Tags:        req.Tags,
		Images:      req.Images,
		Active:      true,
	}
	if err := ct.products.Create(ctx, product); err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Failed to add product")
	}

	return responses.Created(c, "Product added successfully", &fiber.Map{
		"product": product,
	})
}

// Update handles PUT /products/:id (admin). Stock edits through here are
// administrative corrections; order flow stock changes go through the
// atomic decrement instead.
func (ct *ProductController) Update(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid product ID format")
	}

	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return responses.Fail(c, fiber.StatusBadRequest, msg)
	}

	product, err := ct.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return responses.Fail(c, fiber.StatusNotFound, "Product not found")
		}
		return responses.Fail(c, fiber.StatusInternalServerError, "Failed to fetch product")
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Category = req.Category
	product.Price = req.Price
	product.Stock = req.Stock
	product.Unit = req.Unit
	product.Tags = req.Tags
	product.Images = req.Images

	if err := ct.products.Update(ctx, product); err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Failed to update product")
	}

	return responses.Ok(c, "Product updated successfully", &fiber.Map{
		"product": product,
	})
}

// Delete handles DELETE /products/:id (admin). Products referenced by orders
// must survive, so this only clears the active flag.
func (ct *ProductController) Delete(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid product ID format")
	}

	if err := ct.products.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return responses.Fail(c, fiber.StatusNotFound, "Product not found")
		}
		return responses.Fail(c, fiber.StatusInternalServerError, "Failed to remove product")
	}

	return responses.Ok(c, "Product removed from catalog", nil)
}

// List handles GET /products with optional category filter and pagination.
func (ct *ProductController) List(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	f := repository.ProductFilter{
		Category:        c.Query("category"),
		Page:            queryInt(c, "page", 1),
		Limit:           queryInt(c, "limit", 10),
		IncludeInactive: middlewares.IsAdmin(c) && c.Query("includeInactive") == "true",
	}

	products, total, err := ct.products.List(ctx, f)
	if err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Failed to fetch products")
	}

	return responses.Ok(c, "Products fetched successfully", &fiber.Map{
		"products":      products,
		"totalProducts": total,
		"currentPage":   f.Page,
	})
}

// Search handles GET /products/search?q=.
func (ct *ProductController) Search(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	query := c.Query("q")
	if query == "" {
		return responses.Fail(c, fiber.StatusBadRequest, "Search query is required")
	}

	products, total, err := ct.products.List(ctx, repository.ProductFilter{
		Query: query,
		Page:  queryInt(c, "page", 1),
		Limit: queryInt(c, "limit", 10),
	})
	if err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Failed to search products")
	}

	return responses.Ok(c, "Products fetched successfully", &fiber.Map{
		"products":      products,
		"totalProducts": total,
	})
}

// Get handles GET /products/:id.
func (ct *ProductController) Get(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid product ID format")
	}

	product, err := ct.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return responses.Fail(c, fiber.StatusNotFound, "Product not found")
		}
		return responses.Fail(c, fiber.StatusInternalServerError, "Failed to fetch product")
	}
	if !product.Active && !middlewares.IsAdmin(c) {
		return responses.Fail(c, fiber.StatusNotFound, "Product not found")
	}

	return responses.Ok(c, "Product fetched successfully", &fiber.Map{
		"product": product,
	})
}

func queryInt(c *fiber.Ctx, key string, def int64) int64 {
	v, err := strconv.ParseInt(c.Query(key, strconv.FormatInt(def, 10)), 10, 64)
	if err != nil {
		return def
	}
	return v
}
