package model

import (
	"time"

	"github.com/google/uuid"
)

// Role separates students from test authors.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User is an account that can attempt tests or administer them.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	SchoolName   string    `json:"school_name,omitempty"`
	ClassName    string    `json:"class_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
