package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Address struct {
	Id            primitive.ObjectID `json:"id" bson:"_id"`
	UserId        primitive.ObjectID `json:"userId" bson:"userId"`
	FullName      string             `json:"fullName" bson:"fullName"`
	Phone         string             `json:"phone" bson:"phone"`
	StreetAddress string             `json:"streetAddress" bson:"streetAddress"`
	City          string             `json:"city" bson:"city"`
	State         string             `json:"state" bson:"state"`
	ZipCode       string             `json:"zipCode" bson:"zipCode"`
	IsDefault     bool               `json:"isDefault" bson:"isDefault"`
}

// Snapshot converts the saved address into the form embedded on orders.
func (a *Address) Snapshot() ShippingAddress {
	return ShippingAddress{
		FullName:      a.FullName,
		Phone:         a.Phone,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		State:         a.State,
		ZipCode:       a.ZipCode,
	}
}
