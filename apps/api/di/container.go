// Package di wires the API process with a dig container.
package di

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/smartclass/portal/apps/api/echo"
	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/assignment"
	"github.com/smartclass/portal/core/attendance"
	"github.com/smartclass/portal/core/course"
	appfs "github.com/smartclass/portal/fs"
	emailsvc "github.com/smartclass/portal/services/email"
	logsvc "github.com/smartclass/portal/services/logger"
	"github.com/smartclass/portal/storage/database"
	inmemdb "github.com/smartclass/portal/storage/database/inmem"
	sqlxrepos "github.com/smartclass/portal/storage/database/sqlx"
	"github.com/smartclass/portal/storage/files"
	"github.com/smartclass/portal/storage/session"
)

const engineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Cleanup releases the resources held by a provider.
	Cleanup func()

	// NamedChecker is a health check reported by /healthz under Name.
	NamedChecker struct {
		Name    string
		Checker core.HealthChecker
	}

	Repositories struct {
		dig.Out
		Accounts    account.Repository
		Courses     course.Repository
		Attendance  attendance.Repository
		Assignments assignment.Repository
		Cleanup     Cleanup        `name:"dbCleanup"`
		Checks      []NamedChecker `group:"health,flatten"`
	}

	FileStorage struct {
		dig.Out
		Store     core.FileStore
		MediaRoot string         `name:"mediaRoot"`
		Checks    []NamedChecker `group:"health,flatten"`
	}

	Sessions struct {
		dig.Out
		Revoker session.Revoker
		Cleanup Cleanup        `name:"sessionsCleanup"`
		Checks  []NamedChecker `group:"health,flatten"`
	}

	ServerParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		AccountSvc    *account.Service
		CourseSvc     *course.Service
		AttendanceSvc *attendance.Service
		AssignmentSvc *assignment.Service
		Revoker       session.Revoker
		Files         core.FileStore
		MediaRoot     string         `name:"mediaRoot"`
		Checks        []NamedChecker `group:"health"`
	}

	// CleanupParam collects every cleanup to run on shutdown.
	CleanupParam struct {
		dig.In
		DB       Cleanup `name:"dbCleanup"`
		Sessions Cleanup `name:"sessionsCleanup"`
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)
	return validate, translator
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		return Repositories{
			Accounts:    inmemdb.NewAccountRepository(db),
			Courses:     inmemdb.NewCourseRepository(db),
			Attendance:  inmemdb.NewAttendanceRepository(db),
			Assignments: inmemdb.NewAssignmentRepository(db),
			Cleanup:     func() {},
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err := database.Migrate(db.DB, "up"); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	return Repositories{
		Accounts:    sqlxrepos.NewAccountRepository(db),
		Courses:     sqlxrepos.NewCourseRepository(db),
		Attendance:  sqlxrepos.NewAttendanceRepository(db),
		Assignments: sqlxrepos.NewAssignmentRepository(db),
		Cleanup: func() {
			if err := db.Close(); err != nil {
				loggerParam.Logger.Error("Failed to close", err)
			}
		},
		Checks: []NamedChecker{{Name: "database", Checker: database.HealthChecker{DB: db}}},
	}
}

func newFileStorage(conf *core.Config) (FileStorage, error) {
	sc := conf.Storage
	if sc.Backend == "b2" {
		store, err := files.NewB2Store(context.Background(), sc.B2AccountID, sc.B2ApplicationKey, sc.B2Bucket, sc.MaxUploadSize)
		if err != nil {
			return FileStorage{}, errors.Wrap(err, "opening b2 bucket")
		}
		return FileStorage{Store: store, Checks: []NamedChecker{{Name: "storage", Checker: store}}}, nil
	}

	store, err := files.NewLocalStore(sc.LocalRoot, sc.MediaURL, sc.MaxUploadSize)
	if err != nil {
		return FileStorage{}, err
	}
	return FileStorage{Store: store, MediaRoot: store.Root()}, nil
}

func newSessions(conf *core.Config, logger core.Logger) Sessions {
	if conf.Redis.Addr == "" {
		return Sessions{Revoker: session.NewMemoryRevoker(), Cleanup: func() {}}
	}
	revoker := session.NewRedisRevoker(conf.Redis)
	return Sessions{
		Revoker: revoker,
		Cleanup: func() {
			if err := revoker.Close(); err != nil {
				logger.Error("Failed to close redis", err)
			}
		},
		Checks: []NamedChecker{{Name: "redis", Checker: revoker}},
	}
}

func newMailRenderer(conf *core.Config) (*core.MailRenderer, error) {
	return core.NewMailRenderer(appfs.FS, conf.AppName, conf.Debug)
}

func newEmailService(conf *core.Config, renderer *core.MailRenderer, logger core.Logger) core.EmailService {
	if conf.Debug || conf.Email.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, renderer, logger)
	}
	return emailsvc.NewSendgridService(conf, renderer, logger)
}

func newServer(p ServerParams) *echoapi.Server {
	checks := make(map[string]core.HealthChecker, len(p.Checks))
	for _, c := range p.Checks {
		checks[c.Name] = c.Checker
	}
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           p.Conf,
		Logger:         p.Logger,
		Validate:       p.Validate,
		Translator:     p.Translator,
		AccountSvc:     p.AccountSvc,
		CourseSvc:      p.CourseSvc,
		AttendanceSvc:  p.AttendanceSvc,
		AssignmentSvc:  p.AssignmentSvc,
		Revoker:        p.Revoker,
		Files:          p.Files,
		MediaRoot:      p.MediaRoot,
		HealthCheckers: checks,
	})
}

// New returns a new dependency injection dig.Container.
// newConf defaults to core.NewConfig.
func New(newConf ...func() *core.Config) *dig.Container {
	c := dig.New()

	confFunc := core.NewConfig
	if len(newConf) > 0 {
		confFunc = newConf[0]
	}

	must(c.Provide(confFunc))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newValidator))
	must(c.Provide(newRepositories))
	must(c.Provide(newFileStorage))
	must(c.Provide(newSessions))
	must(c.Provide(newMailRenderer))
	must(c.Provide(newEmailService))
	must(c.Provide(account.NewResetTokenGenerator))
	must(c.Provide(account.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(assignment.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
