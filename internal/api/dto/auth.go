package dto

import (
	"github.com/vibhor121/mastersunion/internal/api/validation"
	"github.com/vibhor121/mastersunion/internal/database/models"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

func (r *RegisterRequest) Validate() map[string]string {
	r.FirstName = validation.Sanitize(r.FirstName)
	r.LastName = validation.Sanitize(r.LastName)
	return validation.Struct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type ProfileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
}

func (r *ProfileRequest) Validate() map[string]string {
	r.FirstName = validation.SanitizePtr(r.FirstName)
	r.LastName = validation.SanitizePtr(r.LastName)
	return validation.Struct(r)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func (r *ChangePasswordRequest) Validate() map[string]string {
	return validation.Struct(r)
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}
