package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/smartpocket/console/core"
	"github.com/smartpocket/console/core/session"
	apisvc "github.com/smartpocket/console/services/api"
	logsvc "github.com/smartpocket/console/services/logger"
	"github.com/smartpocket/console/storage/boltdb"
)

var logger core.Logger

func main() {
	defer os.Exit(0)

	std := log.New(os.Stdout, "SMARTPOCKET : ", log.LstdFlags)
	conf := core.LoadConfig()

	if conf.Debug || conf.RollbarToken == "" {
		logger = logsvc.NewStdLogger(std, conf)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up session storage
	if err := os.MkdirAll(conf.StateDir, 0700); err != nil {
		std.Fatal(err)
	}
	storage, err := boltdb.Open(filepath.Join(conf.StateDir, "session.db"))
	if err != nil {
		std.Fatal(err)
	}
	defer storage.Close()

	store := session.NewStore(
		storage,
		apisvc.NewClient(conf.APIBaseURL),
		logger,
		session.WithRequestTimeout(conf.RequestTimeout),
	)

	// start CLI
	cli := commandLine{
		store: store,
		out:   os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
