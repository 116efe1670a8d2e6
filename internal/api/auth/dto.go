package auth

import (
	"time"

	"visualizar-api/internal/domain/users"
)

type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type SendOTPResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// UserSummary is the role-aware user projection returned on login.
type UserSummary struct {
	ID             string     `json:"id"`
	TeacherID      *string    `json:"teacherId,omitempty"`
	StudentID      *string    `json:"studentId,omitempty"`
	Email          string     `json:"email"`
	Name           *string    `json:"name"`
	Role           users.Role `json:"role"`
	SupabaseUserID string     `json:"supabaseUserId"`
	Avatar         *string    `json:"avatar,omitempty"`
}

type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserSummary `json:"user"`
	Attempts     int         `json:"attempts"`
	RetryAt      *time.Time  `json:"retryAt"`
}

type CreateUserInput struct {
	Email string     `json:"email" binding:"required,email"`
	DNI   string     `json:"dni" binding:"required"`
	Role  users.Role `json:"role" binding:"required"`
	Name  *string    `json:"name"`
}

type CreatedUser struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Name           *string    `json:"name"`
	DNI            string     `json:"dni"`
	Role           users.Role `json:"role"`
	SupabaseUserID string     `json:"supabaseUserId"`
}
