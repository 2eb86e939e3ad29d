package testutil

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/assignment"
	"github.com/smartclass/portal/core/attendance"
	"github.com/smartclass/portal/core/course"
	appfs "github.com/smartclass/portal/fs"
	"github.com/smartclass/portal/services/email"
	"github.com/smartclass/portal/services/logger"
	"github.com/smartclass/portal/storage/database/inmem"
	"github.com/smartclass/portal/storage/files"
)

const DefaultPassword = "pw123"

// Services is a complete set of domain services backed by an in-memory database
// and a local file store in a temporary directory.
type Services struct {
	Conf       *core.Config
	Logger     *logsvc.RollbarLogger
	Validate   *validator.Validate
	Translator ut.Translator
	Mailer     *emailsvc.ConsoleServiceMock
	DB         *inmemdb.DB
	Files      *files.LocalStore
	Tokens     *account.ResetTokenGenerator

	AccountRepo    account.Repository
	CourseRepo     course.Repository
	AttendanceRepo attendance.Repository
	AssignmentRepo assignment.Repository

	Accounts    *account.Service
	Courses     *course.Service
	Attendance  *attendance.Service
	Assignments *assignment.Service
}

// Config returns a test configuration that does not depend on the environment.
func Config() *core.Config {
	return &core.Config{
		Build:     "test",
		Env:       "TEST",
		TestMode:  true,
		AppName:   "SmartClass",
		SecretKey: "test-secret-key",
		BaseURL:   "http://smartclass.test",

		PasswordResetTimeout: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Host:               "localhost",
			Port:               8000,
			ReadTimeout:        5 * time.Second,
			WriteTimeout:       10 * time.Second,
			ShutdownTimeout:    5 * time.Second,
			JWTExpirationDelta: time.Hour,
			SessionCookieName:  "smartclass_session",
			DisableReqLogs:     true,
		},
		Storage: core.StorageConfig{
			Backend:       "local",
			MediaURL:      "/media",
			MaxUploadSize: 1 << 20,
		},
		Email: core.EmailConfig{DefaultFromEmail: "SmartClass <noreply@smartclass.test>"},
	}
}

func NewServices(t *testing.T) *Services {
	t.Helper()

	conf := Config()
	conf.Storage.LocalRoot = t.TempDir()

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	validate, translator := core.NewValidator()
	account.InitValidators(validate, translator)

	renderer, err := core.NewMailRenderer(appfs.FS, conf.AppName, true /* strict */)
	if err != nil {
		t.Fatalf("NewMailRenderer() failed: %v", err)
	}
	mailer := emailsvc.NewConsoleServiceMock(conf, renderer, logger)

	store, err := files.NewLocalStore(conf.Storage.LocalRoot, conf.Storage.MediaURL, conf.Storage.MaxUploadSize)
	if err != nil {
		t.Fatalf("NewLocalStore() failed: %v", err)
	}

	db := inmemdb.Open()
	svcs := &Services{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Mailer:         mailer,
		DB:             db,
		Files:          store,
		Tokens:         account.NewResetTokenGenerator(conf),
		AccountRepo:    inmemdb.NewAccountRepository(db),
		CourseRepo:     inmemdb.NewCourseRepository(db),
		AttendanceRepo: inmemdb.NewAttendanceRepository(db),
		AssignmentRepo: inmemdb.NewAssignmentRepository(db),
	}
	svcs.Accounts = account.NewService(svcs.AccountRepo, validate, mailer, svcs.Tokens)
	svcs.Courses = course.NewService(svcs.CourseRepo, svcs.Accounts, store, validate)
	svcs.Attendance = attendance.NewService(svcs.AttendanceRepo, svcs.Courses)
	svcs.Assignments = assignment.NewService(svcs.AssignmentRepo, svcs.Courses, store, validate)
	return svcs
}

func (s *Services) CreateStudent(t *testing.T, username string) *account.Student {
	t.Helper()
	st, err := s.Accounts.RegisterStudent(context.Background(), account.NewAccount{
		Username: username,
		Password: DefaultPassword,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func (s *Services) CreateFaculty(t *testing.T, username string) *account.Faculty {
	t.Helper()
	fac, err := s.Accounts.RegisterFaculty(context.Background(), account.NewAccount{
		Username: username,
		Password: DefaultPassword,
	})
	if err != nil {
		t.Fatalf("CreateFaculty() failed: %v", err)
	}
	return fac
}

func (s *Services) CreateCourse(t *testing.T, fac *account.Faculty, code, name string) *course.Course {
	t.Helper()
	c, err := s.Courses.CreateCourse(context.Background(), fac, course.NewCourse{Code: code, Name: name})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func (s *Services) Enroll(t *testing.T, fac *account.Faculty, c *course.Course, students ...*account.Student) {
	t.Helper()
	for _, st := range students {
		if _, err := s.Courses.Enroll(context.Background(), fac, c.ID, st.Profile.ID); err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
	}
}

// PDF is the smallest content sniffed as application/pdf.
func PDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
}

func Upload(filename string, content []byte) *core.Upload {
	return &core.Upload{Filename: filename, Content: bytes.NewReader(content)}
}
