package addressController

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agrikart/api/models"
	"github.com/agrikart/api/repository"
	"github.com/agrikart/api/responses"
)

const requestTimeout = 10 * time.Second

// AddressController manages a user's saved shipping addresses.
type AddressController struct {
	addresses repository.AddressStore
}

func NewAddressController(addresses repository.AddressStore) *AddressController {
	return &AddressController{addresses: addresses}
}

type addressRequest struct {
	FullName      string `json:"fullName"`
	Phone         string `json:"phone"`
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zipCode"`
	IsDefault     bool   `json:"isDefault"`
}

func (r *addressRequest) validate() string {
	switch {
	case r.FullName == "":
		return "Full name is required"
	case r.StreetAddress == "":
		return "Street address is required"
	case r.City == "":
		return "City is required"
	case r.State == "":
		return "State is required"
	case r.ZipCode == "":
		return "Zip code is required"
	default:
		return ""
	}
}

func userObjectID(c *fiber.Ctx) (primitive.ObjectID, bool) {
	userId, ok := c.Locals("userId").(string)
	if !ok || userId == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(userId)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// Add handles POST /addresses. Saving with isDefault set unsets the flag on
// the user's other addresses.
func (ct *AddressController) Add(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userID, ok := userObjectID(c)
	if !ok {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request format")
	}
	if msg := req.validate(); msg != "" {
		return responses.Fail(c, fiber.StatusBadRequest, msg)
	}

	address := &models.Address{
		Id:            primitive.NewObjectID(),
		UserId:        userID,
		FullName:      req.FullName,
		Phone:         req.Phone,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		IsDefault:     req.IsDefault,
	}
	if err := ct.addresses.Create(ctx, address); err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Error adding address")
	}

	return responses.Created(c, "Address added successfully", &fiber.Map{
		"address": address,
	})
}

// List handles GET /addresses.
func (ct *AddressController) List(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userID, ok := userObjectID(c)
	if !ok {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}

	addresses, err := ct.addresses.ListByUser(ctx, userID)
	if err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Error fetching addresses")
	}

	return responses.Ok(c, "Addresses fetched successfully", &fiber.Map{
		"addresses": addresses,
	})
}

// Edit handles PUT /addresses/:id.
func (ct *AddressController) Edit(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userID, ok := userObjectID(c)
	if !ok {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}
	addressID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid address ID format")
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request format")
	}
	if msg := req.validate(); msg != "" {
		return responses.Fail(c, fiber.StatusBadRequest, msg)
	}

	address := &models.Address{
		Id:            addressID,
		UserId:        userID,
		FullName:      req.FullName,
		Phone:         req.Phone,
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		IsDefault:     req.IsDefault,
	}
	if err := ct.addresses.Update(ctx, address); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return responses.Fail(c, fiber.StatusNotFound, "Address not found or you don't have permission to update it")
		}
		return responses.Fail(c, fiber.StatusInternalServerError, "Error updating address")
	}

	return responses.Ok(c, "Address updated successfully", &fiber.Map{
		"address": address,
	})
}

// Delete handles DELETE /addresses/:id.
func (ct *AddressController) Delete(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	userID, ok := userObjectID(c)
	if !ok {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}
	addressID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid address ID format")
	}

	if err := ct.addresses.Delete(ctx, addressID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return responses.Fail(c, fiber.StatusNotFound, "Address not found or you don't have permission to delete it")
		}
		return responses.Fail(c, fiber.StatusInternalServerError, "Error deleting address")
	}

	return responses.Ok(c, "Address deleted successfully", nil)
}
