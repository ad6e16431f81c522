package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartpocket/console/core"
	"github.com/smartpocket/console/core/session"
	logsvc "github.com/smartpocket/console/services/logger"
	"github.com/smartpocket/console/storage/inmem"
)

const schoolLoginBody = `{
	"success": true,
	"data": {
		"access_token": "t1",
		"refresh_token": "r1",
		"user": {
			"id": 1,
			"email": "a@b.com",
			"role": "school",
			"name": "Hill School",
			"school_id": "S1",
			"school_name": "Hill School"
		}
	}
}`

const schoolProfileBody = `{
	"success": true,
	"data": {
		"id": 1,
		"email": "a@b.com",
		"role": "school",
		"name": "Hill School",
		"school_id": "S1",
		"school_name": "Hill School"
	}
}`

// stubClient is a canned session.Client for CLI tests.
type stubClient struct {
	loginBody   string
	loginErr    error
	profileBody string
	profileErr  error
	logoutErr   error
}

var _ session.Client = (*stubClient)(nil)

func (c *stubClient) Login(ctx context.Context, creds session.Credentials) (json.RawMessage, error) {
	if c.loginErr != nil {
		return nil, c.loginErr
	}
	return json.RawMessage(c.loginBody), nil
}

func (c *stubClient) Profile(ctx context.Context, token string) (json.RawMessage, error) {
	if c.profileErr != nil {
		return nil, c.profileErr
	}
	return json.RawMessage(c.profileBody), nil
}

func (c *stubClient) Logout(ctx context.Context, token string) error { return c.logoutErr }

func newTestCLI(client session.Client, storage session.Storage) (*commandLine, *bytes.Buffer) {
	out := new(bytes.Buffer)
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0), &core.Config{})
	store := session.NewStore(storage, client, logger, session.WithRequestTimeout(time.Second))
	return &commandLine{store: store, out: out}, out
}

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func signedInState(t *testing.T) session.StoredState {
	t.Helper()
	ident, err := json.Marshal(session.Identity{
		ID: "1", Email: "a@b.com", Role: session.RoleSchool,
		DisplayName: "Hill School", SchoolID: "S1", SchoolName: "Hill School",
	})
	require.NoError(t, err)
	return session.StoredState{Token: "t1", RefreshToken: "r1", Identity: ident}
}

func Test_commandLine_run(t *testing.T) {
	okClient := &stubClient{loginBody: schoolLoginBody, profileBody: schoolProfileBody}

	tests := []struct {
		name     string
		args     []string
		password string
		client   session.Client
		state    *session.StoredState
		wantErr  error
		wantOut  []string
	}{
		{
			name:    "no args prints usage",
			args:    []string{"smartpocket"},
			client:  okClient,
			wantErr: errHelp,
			wantOut: []string{"Usage:"},
		},
		{
			name:    "unknown command prints usage",
			args:    []string{"smartpocket", "frobnicate"},
			client:  okClient,
			wantErr: errHelp,
			wantOut: []string{"Usage:"},
		},
		{
			name:     "login missing flags",
			args:     []string{"smartpocket", "login", "-email", "a@b.com"},
			password: "x",
			client:   okClient,
			wantErr:  errHelp,
		},
		{
			name:     "login empty password",
			args:     []string{"smartpocket", "login", "-email", "a@b.com", "-role", "school", "-school-code", "S1"},
			password: "",
			client:   okClient,
			wantErr:  errHelp,
		},
		{
			name:     "login invalid email prints validation message",
			args:     []string{"smartpocket", "login", "-email", "not-an-email", "-role", "school", "-school-code", "S1"},
			password: "x",
			client:   okClient,
			wantErr:  errHelp,
			wantOut:  []string{"email:"},
		},
		{
			name:     "login school code required for school role",
			args:     []string{"smartpocket", "login", "-email", "a@b.com", "-role", "school"},
			password: "x",
			client:   okClient,
			wantErr:  errHelp,
			wantOut:  []string{"school_code:"},
		},
		{
			name:     "login success",
			args:     []string{"smartpocket", "login", "-email", "a@b.com", "-role", "school", "-school-code", "S1"},
			password: "x",
			client:   okClient,
			wantOut:  []string{"signed in as a@b.com (school)"},
		},
		{
			name:    "whoami not signed in",
			args:    []string{"smartpocket", "whoami"},
			client:  okClient,
			wantOut: []string{"not signed in"},
		},
		{
			name:    "whoami signed in",
			args:    []string{"smartpocket", "whoami"},
			client:  okClient,
			state:   ptr(signedInState(t)),
			wantOut: []string{"email: a@b.com", "role:  school", "school: Hill School (S1)"},
		},
		{
			name:    "logout signed out",
			args:    []string{"smartpocket", "logout"},
			client:  okClient,
			state:   ptr(signedInState(t)),
			wantOut: []string{"signed out"},
		},
		{
			name:    "dashboard not signed in",
			args:    []string{"smartpocket", "dashboard"},
			client:  okClient,
			wantOut: []string{"not signed in; run `smartpocket login` first"},
		},
		{
			name:    "dashboard school",
			args:    []string{"smartpocket", "dashboard"},
			client:  okClient,
			state:   ptr(signedInState(t)),
			wantOut: []string{"School Admin Console", "school: Hill School (S1)", "- Payments"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.password)

			storage := inmem.NewStorage()
			if tt.state != nil {
				require.NoError(t, storage.Save(*tt.state))
			}
			cli, out := newTestCLI(tt.client, storage)

			err := cli.run(tt.args)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func Test_commandLine_dashboard_accessDenied(t *testing.T) {
	client := &stubClient{
		loginBody:   schoolLoginBody,
		profileBody: `{"success":true,"data":{"id":9,"email":"t@b.com","role":"teacher"}}`,
	}
	ident, err := json.Marshal(session.Identity{ID: "9", Email: "t@b.com", Role: "teacher"})
	require.NoError(t, err)

	storage := inmem.NewStorage()
	require.NoError(t, storage.Save(session.StoredState{Token: "t9", Identity: ident}))

	cli, out := newTestCLI(client, storage)
	require.NoError(t, cli.run([]string{"smartpocket", "dashboard"}))
	<-cli.store.Done()

	assert.Contains(t, out.String(), `Access denied: role "teacher"`)
}

func ptr[T any](v T) *T { return &v }
