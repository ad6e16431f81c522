package tests

import (
	"net/http/httptest"
	"testing"
	"time"

	fakeapi "github.com/smartpocket/console/apps/fakeapi/echo"
	"github.com/smartpocket/console/core/session"
	apisvc "github.com/smartpocket/console/services/api"
	"github.com/smartpocket/console/storage/inmem"
	testutil "github.com/smartpocket/console/tests"
)

func setup(t *testing.T) (*httptest.Server, *fakeapi.AccountStore) {
	accounts := fakeapi.NewAccountStore()
	srv := fakeapi.NewServer(&fakeapi.Options{
		AppName:        "Smart Pocket",
		SecretKey:      "test-secret",
		DisableReqLogs: true,
		Accounts:       accounts,
		Logger:         testutil.NewLogger(),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, accounts
}

func newSessionStore(ts *httptest.Server, storage session.Storage) *session.Store {
	return session.NewStore(
		storage,
		apisvc.NewClient(ts.URL),
		testutil.NewLogger(),
		session.WithRequestTimeout(2*time.Second),
	)
}

func newStorage() *inmem.Storage {
	return inmem.NewStorage()
}
