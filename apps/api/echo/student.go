package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core/account"
)

func registerStudentRoutes(s *Server, g *echo.Group) {
	g.GET("/register", registerPage(account.RoleStudent))
	g.POST("/register", s.register(account.RoleStudent))
	g.GET("/login", loginPage(account.RoleStudent))
	g.POST("/login", s.login(account.RoleStudent))

	auth := g.Group("", s.sessionMiddleware(account.RoleStudent))
	auth.GET("/dashboard", s.studentDashboard)
	auth.GET("/profile", s.profile)
	auth.GET("/profile/edit", editProfilePage("student_profile",
		"email", "roll_no", "semester", "department", "father_name", "mother_name",
		"address", "mobile_number", "parent_phone", "photo", "signature"))
	auth.POST("/profile/edit", s.studentEditProfile)
	auth.GET("/courses", s.studentCourses)
	auth.POST("/courses/:course_id/enroll", s.studentEnroll)
	auth.DELETE("/courses/:course_id/enroll", s.studentUnenroll)
	auth.GET("/courses/:course_id/materials", s.studentMaterials)
	auth.GET("/attendance", s.studentAttendance)
	auth.GET("/assignments", s.studentAssignments)
	auth.GET("/assignments/:assignment_id/submit", s.studentSubmissionStatus)
	auth.POST("/assignments/:assignment_id/submit", s.studentSubmit)
}

func (s *Server) studentDashboard(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	courses, err := s.CourseSvc.ListEnrolled(rctx, st)
	if err != nil {
		return err
	}
	summary, err := s.AttendanceSvc.ComputeSummary(rctx, st)
	if err != nil {
		return err
	}
	assignments, err := s.AssignmentSvc.ListForStudent(rctx, st)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"student":     st,
		"courses":     courses,
		"attendance":  summary.Courses,
		"assignments": assignments,
	})
}

func (s *Server) studentCourses(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	listings, err := s.CourseSvc.ListForStudent(ctx.Request().Context(), st)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, listings)
}

func (s *Server) studentEnroll(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "course_id")
	if err != nil {
		return err
	}
	e, err := s.CourseSvc.Enroll(ctx.Request().Context(), st, courseID, st.Profile.ID)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (s *Server) studentUnenroll(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "course_id")
	if err != nil {
		return err
	}
	if err := s.CourseSvc.Unenroll(ctx.Request().Context(), st, courseID, st.Profile.ID); err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) studentMaterials(ctx echo.Context) error {
	courseID, err := idParam(ctx, "course_id")
	if err != nil {
		return err
	}
	c, materials, err := s.CourseSvc.ListMaterials(ctx.Request().Context(), courseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"course": c, "materials": materials})
}

func (s *Server) studentAttendance(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	summary, err := s.AttendanceSvc.ComputeSummary(ctx.Request().Context(), st)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (s *Server) studentAssignments(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	listings, err := s.AssignmentSvc.ListForStudent(ctx.Request().Context(), st)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, listings)
}

func (s *Server) studentSubmissionStatus(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "assignment_id")
	if err != nil {
		return err
	}
	a, sub, err := s.AssignmentSvc.SubmissionStatus(ctx.Request().Context(), st, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"assignment": a, "submission": sub, "submitted": sub != nil})
}

func (s *Server) studentSubmit(ctx echo.Context) error {
	st, err := getContextStudent(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "assignment_id")
	if err != nil {
		return err
	}
	up, closeFile, err := formFile(ctx, "file")
	if err != nil {
		return err
	}
	defer closeFile()

	sub, err := s.AssignmentSvc.Submit(ctx.Request().Context(), st, id, up)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	s.metrics.submissions.Inc()
	return ctx.JSON(http.StatusCreated, sub)
}
