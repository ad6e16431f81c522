package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/smartpocket/console/core"
)

const defaultRequestTimeout = 15 * time.Second

type (
	// Store owns the authentication lifecycle: it loads any previously
	// persisted session, revalidates it against the remote profile endpoint,
	// exposes login/logout, and publishes the current session snapshot.
	//
	// All dependencies are injected; there are no package-level singletons.
	Store struct {
		storage Storage
		client  Client
		log     core.Logger
		timeout time.Duration

		mu          sync.Mutex
		identity    *Identity
		token       string
		refresh     string
		resolving   bool
		initStarted bool
		// generation is bumped by Login and Logout; an in-flight profile
		// revalidation only applies its result when the generation it started
		// under is still current, so a stale result cannot resurrect a
		// session that was cleared while it was in flight.
		generation uint64

		done chan struct{}
	}

	Option func(*Store)
)

// WithRequestTimeout bounds each remote call made by the Store.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func NewStore(storage Storage, client Client, log core.Logger, opts ...Option) *Store {
	s := &Store{
		storage:   storage,
		client:    client,
		log:       log,
		timeout:   defaultRequestTimeout,
		resolving: true,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a snapshot of the in-memory session state. It never blocks.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the current credential token, if any.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Done is closed once the initial resolution, including any background
// revalidation, has fully settled. It only settles after Initialize is called.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// Initialize resolves the session persisted by a previous run. It is a no-op
// after the first call; the guard is set before any suspension point so
// concurrent calls cannot race two profile fetches.
//
// When both a token and a stored identity exist the identity is applied
// optimistically and revalidation happens in the background: callers are
// never blocked on network I/O in that case. With a token but no usable
// stored identity, Initialize blocks on the profile fetch.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initStarted {
		s.mu.Unlock()
		return
	}
	s.initStarted = true
	s.mu.Unlock()

	state, err := s.storage.Load()
	if err != nil {
		s.log.Error("session: loading persisted state", err)
		state = StoredState{}
	}

	if state.Token == "" {
		s.mu.Lock()
		s.identity = nil
		s.resolving = false
		s.mu.Unlock()
		close(s.done)
		return
	}

	ident := s.decodeStoredIdentity(state.Identity)

	s.mu.Lock()
	s.token = state.Token
	s.refresh = state.RefreshToken
	gen := s.generation
	if ident != nil {
		s.identity = ident
		s.resolving = false
	}
	s.mu.Unlock()

	if ident != nil {
		go func() {
			s.revalidate(ctx, state.Token, gen)
			close(s.done)
		}()
		return
	}

	s.revalidate(ctx, state.Token, gen)
	close(s.done)
}

// Login exchanges credentials for a token+identity pair. On any failure the
// prior state is left untouched and the error is returned to the caller.
func (s *Store) Login(ctx context.Context, creds Credentials) (Session, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Login(rctx, creds)
	if err != nil {
		return Session{}, err
	}
	token, refresh, ident, err := parseLoginResponse(raw)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.token = token
	s.refresh = refresh
	s.identity = ident
	s.resolving = false
	if err := s.persistLocked(); err != nil {
		s.log.Error("session: persisting login", err)
	}
	return s.snapshotLocked(), nil
}

// Logout best-effort invalidates the token remotely (failures are logged and
// swallowed), then unconditionally clears the persisted triple and the
// in-memory identity. It never fails and is safe to call repeatedly.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.generation++
	s.mu.Unlock()

	if token != "" {
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		if err := s.client.Logout(rctx, token); err != nil {
			s.log.Warn("session: remote logout failed", err)
		}
		cancel()
	}

	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

// revalidate refreshes the identity from the remote profile endpoint.
// On failure, or on an unrecognizable body, it falls back to the identity
// already in memory; with nothing to fall back to it forces a clean
// unauthenticated state (local clear only, no remote call).
func (s *Store) revalidate(ctx context.Context, token string, gen uint64) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Profile(rctx, token)
	var ident Identity
	var ok bool
	if err == nil {
		ident, ok = ExtractIdentity(raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.resolving = false }()

	if s.generation != gen {
		return // cleared or replaced while the fetch was in flight
	}

	if err != nil || !ok {
		if err != nil {
			s.log.Warn("session: profile revalidation failed", err)
		} else {
			s.log.Warn("session: unrecognizable profile response")
		}
		if s.identity == nil {
			s.clearLocked()
		}
		return
	}

	s.identity = &ident
	if err := s.persistLocked(); err != nil {
		s.log.Error("session: persisting revalidated identity", err)
	}
}

func (s *Store) decodeStoredIdentity(raw []byte) *Identity {
	if len(raw) == 0 {
		return nil
	}
	var ident Identity
	if err := json.Unmarshal(raw, &ident); err != nil {
		// corrupt persisted identity is treated as absent
		s.log.Warn("session: corrupt stored identity", err)
		return nil
	}
	if ident.ID == "" && ident.Email == "" {
		return nil
	}
	return &ident
}

func (s *Store) persistLocked() error {
	raw, err := json.Marshal(s.identity)
	if err != nil {
		return errors.Wrap(err, "serializing identity")
	}
	return s.storage.Save(StoredState{
		Token:        s.token,
		RefreshToken: s.refresh,
		Identity:     raw,
	})
}

func (s *Store) clearLocked() {
	if err := s.storage.Clear(); err != nil {
		s.log.Error("session: clearing persisted state", err)
	}
	s.identity = nil
	s.token = ""
	s.refresh = ""
	s.resolving = false
}

func (s *Store) snapshotLocked() Session {
	sess := Session{IsResolving: s.resolving}
	if s.identity != nil {
		ident := *s.identity
		sess.Identity = &ident
	}
	return sess
}

type loginPayload struct {
	Success bool `json:"success"`
	Data    struct {
		AccessToken  string          `json:"access_token"`
		RefreshToken string          `json:"refresh_token"`
		User         json.RawMessage `json:"user"`
	} `json:"data"`
}

// parseLoginResponse enforces the login contract:
// {success: true, data: {access_token, user, refresh_token?}} with both
// access_token and user present. Anything else is a failure.
func parseLoginResponse(raw json.RawMessage) (token, refresh string, ident *Identity, err error) {
	var body loginPayload
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", "", nil, ErrMalformedResponse
	}
	if !body.Success || body.Data.AccessToken == "" {
		return "", "", nil, ErrMalformedResponse
	}
	var userObj map[string]interface{}
	if err := json.Unmarshal(body.Data.User, &userObj); err != nil || userObj == nil {
		return "", "", nil, ErrMalformedResponse
	}
	user := identityFields(userObj)
	return body.Data.AccessToken, body.Data.RefreshToken, &user, nil
}
