package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/assignment"
	"github.com/smartclass/portal/core/attendance"
	"github.com/smartclass/portal/core/course"
)

func registerFacultyRoutes(s *Server, g *echo.Group) {
	g.GET("/register", registerPage(account.RoleFaculty))
	g.POST("/register", s.register(account.RoleFaculty))
	g.GET("/login", loginPage(account.RoleFaculty))
	g.POST("/login", s.login(account.RoleFaculty))

	auth := g.Group("", s.sessionMiddleware(account.RoleFaculty))
	auth.GET("/dashboard", s.facultyDashboard)
	auth.GET("/profile", s.profile)
	auth.GET("/profile/edit", editProfilePage("faculty_profile",
		"full_name", "email", "employee_id", "designation", "department", "date_of_birth", "gender",
		"father_name", "mother_name", "phone_number", "address", "qualifications", "experience", "photo"))
	auth.POST("/profile/edit", s.facultyEditProfile)
	auth.GET("/courses", s.facultyCourses)
	auth.GET("/courses/create", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, formPage{Form: "course_create", Fields: []string{"code", "name"}})
	})
	auth.POST("/courses/create", s.facultyCreateCourse)
	auth.GET("/courses/:course_id/students", s.facultyCourseStudents)
	auth.POST("/courses/:course_id/students", s.facultyEnrollStudent)
	auth.DELETE("/courses/:course_id/students/:student_id", s.facultyUnenrollStudent)
	auth.GET("/courses/:course_id/materials/upload", s.facultyMaterialsPage)
	auth.POST("/courses/:course_id/materials/upload", s.facultyUploadMaterial)
	auth.GET("/attendance", s.facultyAttendanceRoster)
	auth.POST("/attendance", s.facultyRecordAttendance)
	auth.GET("/assignments", s.facultyAssignments)
	auth.GET("/assignments/create", s.facultyAssignmentPage)
	auth.POST("/assignments/create", s.facultyCreateAssignment)
	auth.GET("/assignments/:assignment_id/submissions", s.facultySubmissions)
}

func (s *Server) facultyDashboard(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	courses, err := s.CourseSvc.ListByFaculty(rctx, fac)
	if err != nil {
		return err
	}
	assignments, err := s.AssignmentSvc.ListForFaculty(rctx, fac)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"faculty": fac, "courses": courses, "assignments": assignments})
}

func (s *Server) facultyCourses(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	courses, err := s.CourseSvc.ListByFaculty(ctx.Request().Context(), fac)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (s *Server) facultyCreateCourse(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	var data course.NewCourse
	if err := bind(ctx, &data, "course.NewCourse"); err != nil {
		return err
	}
	c, err := s.CourseSvc.CreateCourse(ctx.Request().Context(), fac, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (s *Server) facultyCourseStudents(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "course_id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	c, students, err := s.CourseSvc.ListStudents(reqCtx, fac, courseID)
	if err != nil {
		return err
	}
	candidates, err := s.CourseSvc.ListCandidates(reqCtx, fac, courseID)
	if err != nil {
		return errors.Wrap(err, "listing enrollment candidates")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"course": c, "students": students, "candidates": candidates})
}

type enrollRequest struct {
	StudentID int64 `json:"student_id" form:"student_id" validate:"required"`
}

func (s *Server) facultyEnrollStudent(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "course_id")
	if err != nil {
		return err
	}
	var data enrollRequest
	if err := bind(ctx, &data, "enrollRequest"); err != nil {
		return err
	}
	if err := s.Validate.Struct(data); err != nil {
		return err
	}
	e, err := s.CourseSvc.Enroll(ctx.Request().Context(), fac, courseID, data.StudentID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (s *Server) facultyUnenrollStudent(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "course_id")
	if err != nil {
		return err
	}
	studentID, err := idParam(ctx, "student_id")
	if err != nil {
		return err
	}
	if err := s.CourseSvc.Unenroll(ctx.Request().Context(), fac, courseID, studentID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) facultyMaterialsPage(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "course_id")
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	if _, err := s.CourseSvc.GetOwned(rctx, fac, courseID); err != nil {
		return err
	}
	c, materials, err := s.CourseSvc.ListMaterials(rctx, courseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"form":      "material_upload",
		"fields":    []string{"title", "description", "file"},
		"course":    c,
		"materials": materials,
	})
}

func (s *Server) facultyUploadMaterial(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	courseID, err := idParam(ctx, "course_id")
	if err != nil {
		return err
	}
	var data course.NewMaterial
	if err := bind(ctx, &data, "course.NewMaterial"); err != nil {
		return err
	}
	up, closeFile, err := formFile(ctx, "file")
	if err != nil {
		return err
	}
	defer closeFile()

	m, err := s.CourseSvc.UploadMaterial(ctx.Request().Context(), fac, courseID, data, up)
	if err != nil {
		return errors.Wrap(err, "uploading material")
	}
	return ctx.JSON(http.StatusCreated, m)
}

// attendanceTarget resolves the course and date of an attendance page. An empty date means today.
func attendanceTarget(courseStr, dateStr string) (int64, time.Time, error) {
	courseID, err := strconv.ParseInt(courseStr, 10, 64)
	if err != nil || courseID <= 0 {
		return 0, time.Time{}, core.NewFieldError("course", "select a valid course")
	}
	if dateStr == "" {
		return courseID, attendance.Date(attendance.NowFunc()), nil
	}
	date, err := attendance.ParseDate(dateStr)
	if err != nil {
		return 0, time.Time{}, core.NewFieldError("date", "enter a valid date (YYYY-MM-DD)")
	}
	return courseID, date, nil
}

func (s *Server) facultyAttendanceRoster(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	if ctx.QueryParam("course") == "" {
		courses, err := s.CourseSvc.ListByFaculty(rctx, fac)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, echo.Map{"courses": courses})
	}

	courseID, date, err := attendanceTarget(ctx.QueryParam("course"), ctx.QueryParam("date"))
	if err != nil {
		return err
	}
	roster, err := s.AttendanceSvc.Roster(rctx, fac, courseID, date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, roster)
}

// facultyRecordAttendance records the whole roster of the course:
// enrolled students without a submitted status are marked Absent.
func (s *Server) facultyRecordAttendance(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	form, err := bindAttendance(ctx)
	if err != nil {
		return err
	}
	courseID, date, err := attendanceTarget(form.Course, form.Date)
	if err != nil {
		return err
	}
	submitted, err := form.statuses()
	if err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	roster, err := s.AttendanceSvc.Roster(rctx, fac, courseID, date)
	if err != nil {
		return err
	}
	statuses := make(map[int64]attendance.Status, len(roster.Entries))
	for _, entry := range roster.Entries {
		st, ok := submitted[entry.Student.Profile.ID]
		if !ok {
			st = attendance.StatusAbsent
		}
		statuses[entry.Student.Profile.ID] = st
	}

	n, err := s.AttendanceSvc.RecordAttendance(rctx, fac, courseID, date, statuses)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	s.metrics.attendanceRows.Add(float64(n))

	roster, err = s.AttendanceSvc.Roster(rctx, fac, courseID, date)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"recorded": n, "roster": roster})
}

func (s *Server) facultyAssignments(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	listings, err := s.AssignmentSvc.ListForFaculty(ctx.Request().Context(), fac)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, listings)
}

func (s *Server) facultyAssignmentPage(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	courses, err := s.CourseSvc.ListByFaculty(ctx.Request().Context(), fac)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, formPage{
		Form:   "assignment_create",
		Fields: []string{"course_id", "title", "description", "due_date", "file"},
		Data:   echo.Map{"courses": courses},
	})
}

func (s *Server) facultyCreateAssignment(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	var data assignment.NewAssignment
	if err := bind(ctx, &data, "assignment.NewAssignment"); err != nil {
		return err
	}
	up, closeFile, err := formFile(ctx, "file")
	if err != nil {
		return err
	}
	defer closeFile()

	a, err := s.AssignmentSvc.Create(ctx.Request().Context(), fac, data, up)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (s *Server) facultySubmissions(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx)
	if err != nil {
		return err
	}
	id, err := idParam(ctx, "assignment_id")
	if err != nil {
		return err
	}
	a, subs, err := s.AssignmentSvc.ListSubmissions(ctx.Request().Context(), fac, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"assignment": a, "submissions": subs})
}
