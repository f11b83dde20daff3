package dto

import (
	"github.com/vibhor121/mastersunion/internal/api/validation"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/users"
)

type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Role      string `json:"role" validate:"required,oneof=ADMIN MANAGER SALES_EXECUTIVE"`
}

func (r *CreateUserRequest) ToInput() (users.CreateInput, map[string]string) {
	r.FirstName = validation.Sanitize(r.FirstName)
	r.LastName = validation.Sanitize(r.LastName)

	return users.CreateInput{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      models.Role(r.Role),
	}, validation.Struct(r)
}

type UpdateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Role      *string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER SALES_EXECUTIVE"`
	IsActive  *bool   `json:"isActive"`
}

func (r *UpdateUserRequest) ToInput() (users.UpdateInput, map[string]string) {
	r.FirstName = validation.SanitizePtr(r.FirstName)
	r.LastName = validation.SanitizePtr(r.LastName)

	in := users.UpdateInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		IsActive:  r.IsActive,
	}
	if r.Role != nil {
		role := models.Role(*r.Role)
		in.Role = &role
	}
	return in, validation.Struct(r)
}
