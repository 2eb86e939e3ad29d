package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
)

const passwordResetRequested = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type passwordResetRequest struct {
	Email string `json:"email" form:"email"`
}

func (s *Server) requestPasswordReset(ctx echo.Context) error {
	var data passwordResetRequest
	if err := bind(ctx, &data, "passwordResetRequest"); err != nil {
		return err
	}
	if err := s.AccountSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		if core.IsValidation(err) {
			return err
		}
		// never tell whether the email is known
		s.Logger.Error("requesting password reset", err)
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": passwordResetRequested})
}

func (s *Server) passwordResetPage(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, formPage{
		Form:   "password_reset_confirm",
		Fields: []string{"uid", "token", "password", "password_confirm"},
		Data:   echo.Map{"uid": ctx.Param("uid"), "token": ctx.Param("token")},
	})
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetPassword
	if err := bind(ctx, &data, "account.ResetPassword"); err != nil {
		return err
	}
	if err := s.AccountSvc.ConfirmPasswordReset(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Password has been reset with the new password."})
}
