package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                        {}
func (nopLogger) Debug(string, ...interface{})       {}
func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})       {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

type fakeStorage struct {
	mu    sync.Mutex
	state StoredState
	saves int
}

func (f *fakeStorage) Load() (StoredState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *fakeStorage) Save(state StoredState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.saves++
	return nil
}

func (f *fakeStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StoredState{}
	return nil
}

func (f *fakeStorage) snapshot() StoredState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

type fakeClient struct {
	profileFn func(ctx context.Context, token string) (json.RawMessage, error)
	loginFn   func(ctx context.Context, creds Credentials) (json.RawMessage, error)
	logoutFn  func(ctx context.Context, token string) error

	profileCalls int32
	logoutCalls  int32
}

func (f *fakeClient) Profile(ctx context.Context, token string) (json.RawMessage, error) {
	atomic.AddInt32(&f.profileCalls, 1)
	if f.profileFn == nil {
		return nil, errors.New("profile: no fake configured")
	}
	return f.profileFn(ctx, token)
}

func (f *fakeClient) Login(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	if f.loginFn == nil {
		return nil, errors.New("login: no fake configured")
	}
	return f.loginFn(ctx, creds)
}

func (f *fakeClient) Logout(ctx context.Context, token string) error {
	atomic.AddInt32(&f.logoutCalls, 1)
	if f.logoutFn == nil {
		return nil
	}
	return f.logoutFn(ctx, token)
}

func newTestStore(storage Storage, client Client) *Store {
	return NewStore(storage, client, nopLogger{}, WithRequestTimeout(time.Second))
}

func storedIdentity(t *testing.T, ident Identity) []byte {
	raw, err := json.Marshal(ident)
	require.NoError(t, err)
	return raw
}

func TestStore_Initialize_noToken(t *testing.T) {
	client := &fakeClient{}
	store := newTestStore(&fakeStorage{}, client)

	assert.True(t, store.Current().IsResolving)
	store.Initialize(context.Background())
	<-store.Done()

	sess := store.Current()
	assert.False(t, sess.IsResolving)
	assert.Nil(t, sess.Identity)
	assert.Zero(t, atomic.LoadInt32(&client.profileCalls), "no token must mean no network call")
}

func TestStore_Initialize_optimistic(t *testing.T) {
	cached := Identity{ID: "1", Email: "a@b.com", Role: RoleSchool}
	storage := &fakeStorage{state: StoredState{
		Token:        "t1",
		RefreshToken: "r1",
		Identity:     storedIdentity(t, cached),
	}}

	release := make(chan struct{})
	client := &fakeClient{
		profileFn: func(ctx context.Context, token string) (json.RawMessage, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return json.RawMessage(`{"success":true,"data":{"id":1,"email":"a@b.com","role":"school","name":"Fresh"}}`), nil
		},
	}
	store := newTestStore(storage, client)

	store.Initialize(context.Background())

	// callers are unblocked before the profile fetch resolves
	sess := store.Current()
	assert.False(t, sess.IsResolving)
	require.NotNil(t, sess.Identity)
	assert.Equal(t, cached, *sess.Identity)
	assert.Equal(t, "t1", store.Token())

	close(release)
	<-store.Done()

	sess = store.Current()
	require.NotNil(t, sess.Identity)
	assert.Equal(t, "Fresh", sess.Identity.DisplayName, "revalidation should refresh the identity")
}

func TestStore_Initialize_revalidationFailure_keepsStoredIdentity(t *testing.T) {
	cached := Identity{ID: "7", Email: "a@b.com", Role: RoleAdmin}
	storage := &fakeStorage{state: StoredState{Token: "t1", Identity: storedIdentity(t, cached)}}
	client := &fakeClient{
		profileFn: func(context.Context, string) (json.RawMessage, error) {
			return nil, errors.New("connection refused")
		},
	}
	store := newTestStore(storage, client)

	store.Initialize(context.Background())
	<-store.Done()

	sess := store.Current()
	require.NotNil(t, sess.Identity)
	assert.Equal(t, cached, *sess.Identity)
	assert.Equal(t, "t1", storage.snapshot().Token, "storage must not be cleared on fallback")
}

func TestStore_Initialize_unrecognizableProfile_keepsStoredIdentity(t *testing.T) {
	cached := Identity{ID: "7", Email: "a@b.com", Role: RoleAdmin}
	storage := &fakeStorage{state: StoredState{Token: "t1", Identity: storedIdentity(t, cached)}}
	client := &fakeClient{
		profileFn: func(context.Context, string) (json.RawMessage, error) {
			return json.RawMessage(`{"status":"ok"}`), nil
		},
	}
	store := newTestStore(storage, client)

	store.Initialize(context.Background())
	<-store.Done()

	sess := store.Current()
	require.NotNil(t, sess.Identity)
	assert.Equal(t, cached, *sess.Identity)
}

func TestStore_Initialize_tokenOnly_profileSuccess(t *testing.T) {
	storage := &fakeStorage{state: StoredState{Token: "t1"}}
	client := &fakeClient{
		profileFn: func(context.Context, string) (json.RawMessage, error) {
			return json.RawMessage(`{"user":{"id":"9","email":"s@p.cd","role":"school","school_id":"S1"}}`), nil
		},
	}
	store := newTestStore(storage, client)

	store.Initialize(context.Background())

	sess := store.Current()
	assert.False(t, sess.IsResolving)
	require.NotNil(t, sess.Identity)
	assert.Equal(t, "9", sess.Identity.ID)
	assert.Equal(t, "S1", sess.Identity.SchoolID)
	assert.NotEmpty(t, storage.snapshot().Identity, "fetched identity must be persisted")
}

func TestStore_Initialize_tokenOnly_profileFailure_clearsSession(t *testing.T) {
	storage := &fakeStorage{state: StoredState{Token: "t1", RefreshToken: "r1"}}
	client := &fakeClient{
		profileFn: func(context.Context, string) (json.RawMessage, error) {
			return nil, errors.New("503")
		},
	}
	store := newTestStore(storage, client)

	store.Initialize(context.Background())

	sess := store.Current()
	assert.False(t, sess.IsResolving)
	assert.Nil(t, sess.Identity)
	assert.Equal(t, StoredState{}, storage.snapshot(), "storage must be cleared")
	assert.Zero(t, atomic.LoadInt32(&client.logoutCalls), "local clear must not call the logout endpoint")
}

func TestStore_Initialize_corruptStoredIdentity(t *testing.T) {
	storage := &fakeStorage{state: StoredState{Token: "t1", Identity: []byte(`{not json`)}}
	client := &fakeClient{
		profileFn: func(context.Context, string) (json.RawMessage, error) {
			return json.RawMessage(`{"data":{"id":3,"email":"x@y.cd","role":"admin"}}`), nil
		},
	}
	store := newTestStore(storage, client)

	// corrupt identity counts as absent: the blocking path applies
	store.Initialize(context.Background())

	sess := store.Current()
	require.NotNil(t, sess.Identity)
	assert.Equal(t, "3", sess.Identity.ID)
}

func TestStore_Initialize_reentrant(t *testing.T) {
	storage := &fakeStorage{state: StoredState{Token: "t1"}}
	client := &fakeClient{
		profileFn: func(context.Context, string) (json.RawMessage, error) {
			time.Sleep(50 * time.Millisecond)
			return json.RawMessage(`{"id":1,"email":"a@b.com","role":"admin"}`), nil
		},
	}
	store := newTestStore(storage, client)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Initialize(context.Background())
		}()
	}
	wg.Wait()
	<-store.Done()

	assert.Equal(t, int32(1), atomic.LoadInt32(&client.profileCalls), "concurrent Initialize must not race two profile fetches")
}

func TestStore_Login_success(t *testing.T) {
	storage := &fakeStorage{}
	client := &fakeClient{
		loginFn: func(_ context.Context, creds Credentials) (json.RawMessage, error) {
			assert.Equal(t, "a@b.com", creds.Email)
			assert.Equal(t, "S1", creds.SchoolCode)
			return json.RawMessage(`{"success":true,"data":{"access_token":"t1","user":{"id":1,"email":"a@b.com","role":"school"}}}`), nil
		},
	}
	store := newTestStore(storage, client)

	sess, err := store.Login(context.Background(), Credentials{
		Email: "a@b.com", Password: "x", Role: RoleSchool, SchoolCode: "S1",
	})
	require.NoError(t, err)

	require.NotNil(t, sess.Identity)
	assert.Equal(t, RoleSchool, sess.Identity.Role)
	assert.Equal(t, "1", sess.Identity.ID)
	assert.False(t, sess.IsResolving)
	assert.Equal(t, "t1", store.Token())

	state := storage.snapshot()
	assert.Equal(t, "t1", state.Token)
	assert.NotEmpty(t, state.Identity, "the triple must be persisted")
}

func TestStore_Login_badShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing access_token", body: `{"success":true,"data":{"user":{"id":1}}}`},
		{name: "missing user", body: `{"success":true,"data":{"access_token":"t1"}}`},
		{name: "null user", body: `{"success":true,"data":{"access_token":"t1","user":null}}`},
		{name: "success false", body: `{"success":false,"data":{"access_token":"t1","user":{"id":1}}}`},
		{name: "no data", body: `{"success":true}`},
		{name: "not json", body: `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &fakeStorage{}
			client := &fakeClient{
				loginFn: func(context.Context, Credentials) (json.RawMessage, error) {
					return json.RawMessage(tt.body), nil
				},
			}
			store := newTestStore(storage, client)

			_, err := store.Login(context.Background(), Credentials{Email: "a@b.com", Password: "x", Role: RoleAdmin})
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Nil(t, store.Current().Identity)
			assert.Equal(t, StoredState{}, storage.snapshot(), "storage must remain untouched")
			assert.Zero(t, storage.saves)
		})
	}
}

func TestStore_Login_transportError(t *testing.T) {
	wantErr := errors.New("dial tcp: connection refused")
	storage := &fakeStorage{}
	client := &fakeClient{
		loginFn: func(context.Context, Credentials) (json.RawMessage, error) {
			return nil, wantErr
		},
	}
	store := newTestStore(storage, client)

	_, err := store.Login(context.Background(), Credentials{Email: "a@b.com", Password: "x", Role: RoleAdmin})
	assert.Equal(t, wantErr, err)
	assert.Nil(t, store.Current().Identity)
	assert.Zero(t, storage.saves)
}

func TestStore_Logout_idempotent(t *testing.T) {
	storage := &fakeStorage{}
	client := &fakeClient{
		loginFn: func(context.Context, Credentials) (json.RawMessage, error) {
			return json.RawMessage(`{"success":true,"data":{"access_token":"t1","user":{"id":1,"email":"a@b.com","role":"admin"}}}`), nil
		},
		logoutFn: func(context.Context, string) error {
			return errors.New("500") // remote failures are swallowed
		},
	}
	store := newTestStore(storage, client)

	_, err := store.Login(context.Background(), Credentials{Email: "a@b.com", Password: "x", Role: RoleAdmin})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		store.Logout(context.Background())
		assert.Nil(t, store.Current().Identity)
		assert.Empty(t, store.Token())
		assert.Equal(t, StoredState{}, storage.snapshot())
	}
	// only the first call held a token, so only one remote invalidation
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.logoutCalls))
}

func TestStore_Logout_staleRevalidationDoesNotResurrect(t *testing.T) {
	cached := Identity{ID: "1", Email: "a@b.com", Role: RoleAdmin}
	storage := &fakeStorage{state: StoredState{Token: "t1", Identity: storedIdentity(t, cached)}}

	release := make(chan struct{})
	client := &fakeClient{
		profileFn: func(ctx context.Context, token string) (json.RawMessage, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return json.RawMessage(`{"id":1,"email":"a@b.com","role":"admin","name":"Stale"}`), nil
		},
	}
	store := newTestStore(storage, client)

	store.Initialize(context.Background())
	require.NotNil(t, store.Current().Identity)

	store.Logout(context.Background())
	assert.Nil(t, store.Current().Identity)

	close(release)
	<-store.Done()

	assert.Nil(t, store.Current().Identity, "a stale revalidation must not resurrect the session")
	assert.Equal(t, StoredState{}, storage.snapshot())
}
