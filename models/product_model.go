package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product categories sold on the storefront.
const (
	CategorySeeds       = "seeds"
	CategoryFertilizers = "fertilizers"
	CategoryPesticides  = "pesticides"
	CategoryTools       = "tools"
	CategoryIrrigation  = "irrigation"
	CategoryMachinery   = "machinery"
)

var productCategories = map[string]bool{
	CategorySeeds:       true,
	CategoryFertilizers: true,
	CategoryPesticides:  true,
	CategoryTools:       true,
	CategoryIrrigation:  true,
	CategoryMachinery:   true,
}

// ValidCategory reports whether category is one of the storefront categories.
func ValidCategory(category string) bool {
	return productCategories[category]
}

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category" validate:"required"`
	Price       float64            `bson:"price" json:"price" validate:"required,gte=0"`
	Stock       int                `bson:"stock" json:"stock" validate:"gte=0"`
	Unit        string             `bson:"unit,omitempty" json:"unit,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Images      []string           `bson:"images,omitempty" json:"images,omitempty"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
