package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
)

const (
	studentPhotosDir     = "student_photos"
	studentSignaturesDir = "student_signatures"
	facultyPhotosDir     = "faculty_photos"
)

type (
	loginRequest struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	loginResponse struct {
		Token     string            `json:"token"`
		Principal account.Principal `json:"principal"`
	}

	// formPage is what GET returns for pages holding a form.
	formPage struct {
		Form   string      `json:"form"`
		Fields []string    `json:"fields"`
		Data   interface{} `json:"data,omitempty"`
	}
)

var (
	registerFields = []string{"username", "email", "first_name", "last_name", "password", "password_confirm"}
	loginFields    = []string{"username", "password"}
)

func registerPage(role account.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, formPage{Form: string(role) + "_register", Fields: registerFields})
	}
}

func loginPage(role account.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, formPage{Form: string(role) + "_login", Fields: loginFields})
	}
}

func (s *Server) register(role account.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data account.NewAccount
		if err := bind(ctx, &data, "account.NewAccount"); err != nil {
			return err
		}

		var p account.Principal
		var err error
		rctx := ctx.Request().Context()
		switch role {
		case account.RoleStudent:
			p, err = s.AccountSvc.RegisterStudent(rctx, data)
		case account.RoleFaculty:
			p, err = s.AccountSvc.RegisterFaculty(rctx, data)
		}
		if err != nil {
			return errors.Wrap(err, "registering "+string(role))
		}
		s.metrics.registrations.WithLabelValues(string(role)).Inc()
		return ctx.JSON(http.StatusCreated, p)
	}
}

func (s *Server) login(role account.Role) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data loginRequest
		if err := bind(ctx, &data, "loginRequest"); err != nil {
			return err
		}
		if err := s.Validate.Struct(data); err != nil {
			return err
		}

		p, err := s.AccountSvc.Authenticate(ctx.Request().Context(), data.Username, data.Password, role)
		if err != nil {
			return errors.Wrap(err, "authenticating")
		}
		token, err := s.startSession(ctx, p)
		if err != nil {
			return errors.Wrap(err, "starting session")
		}
		return ctx.JSON(http.StatusOK, loginResponse{Token: token, Principal: p})
	}
}

func (s *Server) profile(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

// saveFormFile stores the multipart file in field under dir. It returns "" when no file was sent.
func (s *Server) saveFormFile(ctx echo.Context, field, dir string) (string, error) {
	up, closeFile, err := formFile(ctx, field)
	if err != nil {
		return "", err
	}
	defer closeFile()
	if up == nil {
		return "", nil
	}

	ref, err := s.Files.Save(ctx.Request().Context(), dir, *up)
	if err != nil {
		if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
			for i := range vErr.Fields {
				vErr.Fields[i].Field = field
			}
		}
		return "", errors.Wrap(err, "saving "+field)
	}
	return ref, nil
}

// deleteFiles removes files stored during a request that failed afterwards.
func (s *Server) deleteFiles(ctx echo.Context, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.Files.Delete(ctx.Request().Context(), ref); err != nil {
			s.Logger.Warn("deleting orphan file", err, map[string]interface{}{"ref": ref})
		}
	}
}

func (s *Server) studentEditProfile(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}

	var data account.UpdateStudentProfile
	if err := bind(ctx, &data, "account.UpdateStudentProfile"); err != nil {
		return err
	}
	if data.Photo, err = s.saveFormFile(ctx, "photo", studentPhotosDir); err != nil {
		return err
	}
	if data.Signature, err = s.saveFormFile(ctx, "signature", studentSignaturesDir); err != nil {
		s.deleteFiles(ctx, data.Photo)
		return err
	}

	updated, err := s.AccountSvc.UpdateStudentProfile(ctx.Request().Context(), st, data)
	if err != nil {
		s.deleteFiles(ctx, data.Photo, data.Signature)
		return errors.Wrap(err, "updating student profile")
	}
	if data.Photo != "" && st.Profile.Photo != "" {
		s.deleteFiles(ctx, st.Profile.Photo)
	}
	if data.Signature != "" && st.Profile.Signature != "" {
		s.deleteFiles(ctx, st.Profile.Signature)
	}
	return ctx.JSON(http.StatusOK, updated)
}

func (s *Server) facultyEditProfile(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}

	var data account.UpdateFacultyProfile
	if err := bind(ctx, &data, "account.UpdateFacultyProfile"); err != nil {
		return err
	}
	if data.Photo, err = s.saveFormFile(ctx, "photo", facultyPhotosDir); err != nil {
		return err
	}

	updated, err := s.AccountSvc.UpdateFacultyProfile(ctx.Request().Context(), fac, data)
	if err != nil {
		s.deleteFiles(ctx, data.Photo)
		return errors.Wrap(err, "updating faculty profile")
	}
	if data.Photo != "" && fac.Profile.Photo != "" {
		s.deleteFiles(ctx, fac.Profile.Photo)
	}
	return ctx.JSON(http.StatusOK, updated)
}

func editProfilePage(form string, fields ...string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, formPage{Form: form, Fields: fields, Data: p})
	}
}
