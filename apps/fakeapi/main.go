package main

import (
	"log"
	"os"

	fakeapi "github.com/smartpocket/console/apps/fakeapi/echo"
	"github.com/smartpocket/console/core"
	"github.com/smartpocket/console/core/session"
	logsvc "github.com/smartpocket/console/services/logger"
)

// Local stand-in for the remote Smart Pocket API, for demos and manual
// testing of the console against a live server.
func main() {
	std := log.New(os.Stdout, "FAKEAPI : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.LoadConfig()
	logger := logsvc.NewStdLogger(std, conf)

	accounts := fakeapi.NewAccountStore()
	seedAccounts(accounts, std)

	app := fakeapi.NewServer(&fakeapi.Options{
		Addr:      ":8800",
		AppName:   conf.AppName,
		SecretKey: "fakeapi-not-a-secret",
		Debug:     conf.Debug,
		Accounts:  accounts,
		Logger:    logger,
	})
	app.Start()
}

func seedAccounts(accounts *fakeapi.AccountStore, std *log.Logger) {
	seeds := []fakeapi.NewAccount{
		{Name: "Platform Admin", Email: "admin@smartpocket.test", Password: "ChangeMe1!", Role: session.RoleAdmin},
		{
			Name: "Bumble Bee Primary", Email: "school@smartpocket.test", Password: "ChangeMe1!",
			Role: session.RoleSchool, SchoolID: "S1", SchoolName: "Bumble Bee Primary",
		},
	}
	for _, na := range seeds {
		if _, err := accounts.Create(na); err != nil {
			std.Fatal(err)
		}
	}
	std.Println("seeded demo accounts: admin@smartpocket.test, school@smartpocket.test (password: ChangeMe1!)")
}
