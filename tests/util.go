package testutil

import (
	"io"
	"log"
	"testing"

	fakeapi "github.com/smartpocket/console/apps/fakeapi/echo"
	"github.com/smartpocket/console/core"
	logsvc "github.com/smartpocket/console/services/logger"
)

// NewLogger returns a quiet core.Logger for tests.
func NewLogger() core.Logger {
	return logsvc.NewStdLogger(log.New(io.Discard, "", 0), &core.Config{})
}

func CreateAccount(t *testing.T, accounts *fakeapi.AccountStore, na fakeapi.NewAccount) fakeapi.Account {
	t.Helper()
	acct, err := accounts.Create(na)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acct
}
