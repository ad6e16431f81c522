package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/smartpocket/console/core"
)

// Top-level console roles. Role comparison is exact and case-sensitive;
// synonyms such as "school_admin" are only understood by the dashboard
// layout, never here.
const (
	RoleAdmin  = "admin"
	RoleSchool = "school"
)

var (
	// errors
	ErrMalformedResponse = errors.New("unexpected response from server")
)

// Identity is the authenticated user record.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"name,omitempty"`
	SchoolID    string `json:"school_id,omitempty"`
	SchoolName  string `json:"school_name,omitempty"`
}

// Session is a point-in-time snapshot of the authentication state.
// A nil Identity means "unauthenticated". IsResolving is true from process
// start until the first resolution attempt completes.
type Session struct {
	Identity    *Identity
	IsResolving bool
}

// Credentials is the login payload sent to the remote API.
type Credentials struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=admin school"`
	SchoolCode string `json:"school_code,omitempty" validate:"required_if=Role school"`
}

func (c *Credentials) Validate() error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.Role = core.CleanString(c.Role, true /* lower */)
	c.SchoolCode = core.CleanString(c.SchoolCode)
	return core.Validate.Struct(c)
}

// StoredState is the persisted session triple. Identity holds the serialized
// identity record; empty when absent.
type StoredState struct {
	Token        string
	RefreshToken string
	Identity     []byte
}

// Storage persists the session triple. Save and Clear act on the three slots
// atomically; a triple is never left partially populated.
type Storage interface {
	Load() (StoredState, error)
	Save(state StoredState) error
	Clear() error
}

// Client is the transport to the remote Smart Pocket auth endpoints.
// Profile and Login return the raw response body; interpreting its shape is
// the Store's job.
type Client interface {
	Profile(ctx context.Context, token string) (json.RawMessage, error)
	Login(ctx context.Context, creds Credentials) (json.RawMessage, error)
	Logout(ctx context.Context, token string) error
}
