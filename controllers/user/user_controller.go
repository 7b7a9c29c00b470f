package controllers

import (
	"context"
	"errors"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrikart/api/models"
	"github.com/agrikart/api/repository"
	"github.com/agrikart/api/responses"
)

const requestTimeout = 10 * time.Second

var emailRegex = regexp.MustCompile(`^(([^<>()[\]\.,;:\s@\"]+(\.[^<>()[\]\.,;:\s@\"]+)*)|(\".+\"))@(([^<>()[\]\.,;:\s@\"]+\.)+[^<>()[\]\.,;:\s@\"]{2,})$`)

// UserController handles signup and signin.
type UserController struct {
	users     repository.UserStore
	jwtSecret []byte
}

func NewUserController(users repository.UserStore, jwtSecret string) *UserController {
	return &UserController{users: users, jwtSecret: []byte(jwtSecret)}
}

// SignUp handles POST /auth/signup.
func (ct *UserController) SignUp(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var reqBody struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Phone           string `json:"phone"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.BodyParser(&reqBody); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request format")
	}

	if reqBody.Name == "" {
		return responses.Fail(c, fiber.StatusBadRequest, "Name is required")
	}
	if utf8.RuneCountInString(reqBody.Password) < 8 {
		return responses.Fail(c, fiber.StatusBadRequest, "Passwords must be 8 letters long")
	}
	if reqBody.Password != reqBody.ConfirmPassword {
		return responses.Fail(c, fiber.StatusBadRequest, "Passwords do not match")
	}
	if !emailRegex.MatchString(reqBody.Email) {
		return responses.Fail(c, fiber.StatusBadRequest, "Please enter a valid email address")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reqBody.Password), bcrypt.DefaultCost)
	if err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Error hashing password")
	}

	user := &models.User{
		Name:     reqBody.Name,
		Email:    reqBody.Email,
		Phone:    reqBody.Phone,
		Password: string(hashedPassword),
		Role:     models.RoleUser,
	}
	if err := ct.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return responses.Fail(c, fiber.StatusBadRequest, "User with same email already exists")
		}
		return responses.Fail(c, fiber.StatusInternalServerError, "Error creating user")
	}

	token, err := ct.issueToken(user)
	if err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Error generating token")
	}

	return responses.Created(c, "Account created successfully", &fiber.Map{
		"token": token,
		"user":  user,
	})
}

// SignIn handles POST /auth/signin.
func (ct *UserController) SignIn(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()

	var reqBody struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&reqBody); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid request format")
	}

	user, err := ct.users.GetByEmail(ctx, reqBody.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return responses.Fail(c, fiber.StatusBadRequest, "Invalid email or password")
		}
		return responses.Fail(c, fiber.StatusInternalServerError, "Error fetching user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqBody.Password)); err != nil {
		return responses.Fail(c, fiber.StatusBadRequest, "Invalid email or password")
	}

	token, err := ct.issueToken(user)
	if err != nil {
		return responses.Fail(c, fiber.StatusInternalServerError, "Error generating token")
	}

	return responses.Ok(c, "Signed in successfully", &fiber.Map{
		"token": token,
		"user":  user,
	})
}

func (ct *UserController) issueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"id":   user.Id.Hex(),
		"role": user.Role,
		"exp":  time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ct.jwtSecret)
}
