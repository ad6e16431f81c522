package fakeapi

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/smartpocket/console/core"
)

const defaultTokenExpiration = 7 * 24 * time.Hour

type (
	Options struct {
		Addr            string
		AppName         string
		SecretKey       string
		TokenExpiration time.Duration
		Debug           bool
		DisableReqLogs  bool
		Accounts        *AccountStore
		Logger          core.Logger
	}

	// Server is a local stand-in for the remote Smart Pocket API, serving the
	// three auth endpoints the console consumes.
	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts   *Options
		app    *echo.Echo
		secret []byte

		mu      sync.Mutex
		revoked map[string]struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.TokenExpiration == 0 {
		opts.TokenExpiration = defaultTokenExpiration
	}
	s := &server{
		opts:    opts,
		app:     echo.New(),
		secret:  []byte(opts.SecretKey),
		revoked: make(map[string]struct{}),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	if !s.opts.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = s.opts.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	ag := s.app.Group("/auth")
	ag.POST("/login", s.login)
	ag.GET("/profile", s.profile, s.authMiddleware)
	ag.POST("/logout", s.logout, s.authMiddleware)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Addr))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Smart Pocket API stub")
}

// Handlers

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	acct, err := s.authenticate(data.credentials())
	if err != nil {
		return err
	}
	token, err := s.generateToken(s.getAccountClaims(acct))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Success: true,
		Data: LoginData{
			AccessToken:  token,
			RefreshToken: uuid.NewString(),
			User:         acct.identity(),
		},
	})
}

func (s *server) profile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return errUnauthorized
	}
	acct, err := s.opts.Accounts.GetByID(id)
	if err != nil {
		return errUnauthorized
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{Success: true, Data: acct.identity()})
}

func (s *server) logout(ctx echo.Context) error {
	if tokenStr, ok := ctx.Get(contextTokenKey).(string); ok {
		s.revoke(tokenStr)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "logged out"})
}
