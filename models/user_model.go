package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	Id       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name     string             `bson:"name" json:"name" validate:"required"`
	Email    string             `bson:"email" json:"email" validate:"required,email"`
	Password string             `bson:"password" json:"-" validate:"required,min=8"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role     string             `bson:"role" json:"role" validate:"oneof=user admin"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
