package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/assignment"
	"github.com/smartclass/portal/core/attendance"
	"github.com/smartclass/portal/core/course"
	"github.com/smartclass/portal/storage/session"
)

type (
	ServerDeps struct {
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

		// MediaRoot is served under Conf.Storage.MediaURL when set (local file storage).
		MediaRoot string
		// HealthCheckers are probed by /healthz.
		HealthCheckers map[string]core.HealthChecker
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.AccountSvc, "AccountSvc"),
		vala.IsNotNil(deps.CourseSvc, "CourseSvc"),
		vala.IsNotNil(deps.AttendanceSvc, "AttendanceSvc"),
		vala.IsNotNil(deps.AssignmentSvc, "AssignmentSvc"),
		vala.IsNotNil(deps.Revoker, "Revoker"),
		vala.IsNotNil(deps.Files, "Files"),
	).CheckAndPanic()

	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		metrics:    newMetrics(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))
	if s.MediaRoot != "" {
		s.app.Static(conf.Storage.MediaURL, s.MediaRoot)
	}

	s.app.Match([]string{http.MethodGet, http.MethodPost}, "/logout", s.logout, s.sessionMiddleware(""))
	s.app.POST("/password-reset", s.requestPasswordReset)
	s.app.GET("/password-reset/:uid/:token", s.passwordResetPage)
	s.app.POST("/password-reset/confirm", s.confirmPasswordReset)

	registerStudentRoutes(s, s.app.Group("/student"))
	registerFacultyRoutes(s, s.app.Group("/faculty"))
}

// Start listens on the configured address. Failures are reported on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "Welcome to " + s.Conf.AppName + "!",
		"student": echo.Map{"register": "/student/register/", "login": "/student/login/"},
		"faculty": echo.Map{"register": "/faculty/register/", "login": "/faculty/login/"},
	})
}

func (s *Server) healthz(ctx echo.Context) error {
	status := make(map[string]string, len(s.HealthCheckers))
	code := http.StatusOK
	for name, hc := range s.HealthCheckers {
		if hc.Healthy(ctx.Request().Context()) {
			status[name] = "ok"
		} else {
			status[name] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	return ctx.JSON(code, echo.Map{"status": http.StatusText(code), "checks": status})
}

// newRequestError wraps binding failures so they surface as 400s.
func newRequestError(err error, what string) error {
	if herr, ok := err.(*echo.HTTPError); ok {
		return herr
	}
	return core.NewValidationError(errors.Wrap(err, what))
}
