// models/auth.go
package models

// LoginRequest is the credentials payload for partner and admin login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginData is returned on successful login.
type LoginData struct {
	Token    string   `json:"token"`
	UserType string   `json:"userType"`
	Partner  *Partner `json:"partner,omitempty"`
}
