package fakeapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/smartpocket/console/core/session"
)

const (
	contextClaimsKey = "claims"
	contextTokenKey  = "token"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	Role       string `json:"role,omitempty"`
	SchoolID   string `json:"school_id,omitempty"`
	SchoolName string `json:"school_name,omitempty"`
}

func (s *server) getAccountClaims(acct Account) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.opts.AppName,
			Subject:   strconv.Itoa(acct.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email:      acct.Email,
		Name:       acct.Name,
		Role:       acct.Role,
		SchoolID:   acct.SchoolID,
		SchoolName: acct.SchoolName,
	}
}

// generateToken generates a signed JWT token string representing the account Claims.
func (s *server) generateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (s *server) parseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// authMiddleware authenticates the bearer token and rejects revoked ones.
func (s *server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return errMissingToken
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := s.parseToken(tokenStr)
		if err != nil {
			return errUnauthorized
		}
		if s.isRevoked(tokenStr) {
			return errUnauthorized
		}

		ctx.Set(contextClaimsKey, claims)
		ctx.Set(contextTokenKey, tokenStr)
		return next(ctx)
	}
}

func (s *server) isRevoked(tokenStr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[tokenStr]
	return ok
}

func (s *server) revoke(tokenStr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenStr] = struct{}{}
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

// authenticate checks credentials against the account table. A school login
// must also present the matching school code.
func (s *server) authenticate(creds session.Credentials) (Account, error) {
	acct, err := s.opts.Accounts.GetByEmail(creds.Email)
	if err != nil {
		if err == ErrAccountNotFound {
			return Account{}, errAuthenticationFailed
		}
		return Account{}, errors.Wrap(err, "finding account by email")
	}
	if err = acct.CheckPassword(creds.Password); err != nil {
		return Account{}, errAuthenticationFailed
	}
	if !acct.IsActive {
		return Account{}, errAccountDeactivated
	}
	if acct.Role != creds.Role {
		return Account{}, errAuthenticationFailed
	}
	if acct.Role == session.RoleSchool && creds.SchoolCode != acct.SchoolID {
		return Account{}, errAuthenticationFailed
	}
	return acct, nil
}

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
