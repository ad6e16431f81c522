package fakeapi

import (
	"github.com/smartpocket/console/core"
	"github.com/smartpocket/console/core/session"
)

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=admin school"`
	SchoolCode string `json:"school_code" validate:"required_if=Role school"`
}

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	lr.Role = core.CleanString(lr.Role, true /* lower */)
	lr.SchoolCode = core.CleanString(lr.SchoolCode)
	return core.Validate.Struct(lr)
}

func (lr *LoginRequest) credentials() session.Credentials {
	return session.Credentials{
		Email:      lr.Email,
		Password:   lr.Password,
		Role:       lr.Role,
		SchoolCode: lr.SchoolCode,
	}
}

type LoginData struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token,omitempty"`
	User         map[string]interface{} `json:"user"`
}

type LoginResponse struct {
	Success bool      `json:"success"`
	Data    LoginData `json:"data"`
}

type ProfileResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
