package model

import (
	"time"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAsha    Role = "asha"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAsha, RoleAdmin:
		return true
	}
	return false
}

// View is a named navigation target.
type View string

const (
	ViewLogin     View = "login"
	ViewHome      View = "home"
	ViewBook      View = "book"
	ViewAIChat    View = "ai-chat"
	ViewDashboard View = "dashboard"
	ViewRewards   View = "rewards"
	ViewDoctor    View = "doctor"
	ViewAsha      View = "asha"
	ViewAdmin     View = "admin"
)

// User is session scoped and never persisted.
type User struct {
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	View      View      `json:"view"`
	Tab       View      `json:"tab"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Role     Role   `json:"role" validate:"required,oneof=patient doctor asha admin"`
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=20"`
	Password string `json:"password"`
	Village  string `json:"village"`
	// MedicalID is collected on doctor registration and not verified.
	MedicalID string `json:"medical_id"`
}

type LoginResponse struct {
	Token   string   `json:"token"`
	Session *Session `json:"session"`
	Message string   `json:"message"`
}

type NavigateRequest struct {
	View View `json:"view" validate:"required"`
}
