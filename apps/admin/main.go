package main

import (
	"log"
	"os"

	"github.com/kat-co/vala"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	appfs "github.com/smartclass/portal/fs"
	emailsvc "github.com/smartclass/portal/services/email"
	logsvc "github.com/smartclass/portal/services/logger"
	"github.com/smartclass/portal/storage/database"
	sqlxrepos "github.com/smartclass/portal/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	errAndDie(vala.BeginValidation().Validate(
		vala.Equals(conf.Database.Engine, "postgres", "database.engine"),
		vala.StringNotEmpty(conf.Database.Name, "database.name"),
	).Check())

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	// set up services
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)
	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)
	renderer, err := core.NewMailRenderer(appfs.FS, conf.AppName, conf.Debug)
	errAndDie(err)
	mailer := emailsvc.NewConsoleService(conf, renderer, appLogger)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		accounts: account.NewService(sqlxrepos.NewAccountRepository(db), validate, mailer, account.NewResetTokenGenerator(conf)),
	}
	err = cli.run(os.Args)
	if cErr := db.Close(); cErr != nil {
		logger.Printf("closing db: %v", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
