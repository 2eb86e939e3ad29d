package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
)

// MaterialsDir is the file store directory holding course materials.
const MaterialsDir = "course_materials"

var NowFunc = func() time.Time { return time.Now().UTC() } // mockable

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id int64) (Course, error)
		// ListCourses returns the courses matching filter ordered by code, then id.
		ListCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		CreateMaterial(ctx context.Context, m Material) (Material, error)
		// ListMaterials returns the course materials, newest first.
		ListMaterials(ctx context.Context, courseID int64) ([]Material, error)
		// Enroll is idempotent: an existing enrollment is returned as is.
		Enroll(ctx context.Context, e Enrollment) (Enrollment, error)
		Unenroll(ctx context.Context, studentID, courseID int64) error
		IsEnrolled(ctx context.Context, studentID, courseID int64) (bool, error)
		// ListEnrolledStudents returns the students enrolled in the course ordered by username.
		ListEnrolledStudents(ctx context.Context, courseID int64) ([]account.Student, error)
	}

	Service struct {
		repo     Repository
		accounts *account.Service
		files    core.FileStore
		validate *validator.Validate
	}
)

func NewService(repo Repository, accounts *account.Service, files core.FileStore, validate *validator.Validate) *Service {
	return &Service{repo: repo, accounts: accounts, files: files, validate: validate}
}

// CreateCourse stores a new course owned by fac. Course codes are not unique.
func (svc *Service) CreateCourse(ctx context.Context, fac *account.Faculty, nc NewCourse) (*Course, error) {
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return nil, err
	}
	c, err := svc.repo.CreateCourse(ctx, Course{
		Code:      nc.Code,
		Name:      nc.Name,
		FacultyID: fac.Profile.ID,
		CreatedAt: NowFunc(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating course")
	}
	return &c, nil
}

func (svc *Service) Get(ctx context.Context, courseID int64) (*Course, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "getting course")
	}
	return &c, nil
}

// GetOwned returns the course if fac owns it, an AuthorizationError otherwise.
func (svc *Service) GetOwned(ctx context.Context, fac *account.Faculty, courseID int64) (*Course, error) {
	c, err := svc.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c.FacultyID != fac.Profile.ID {
		return nil, core.NewAuthorizationError("you do not teach this course")
	}
	return c, nil
}

func (svc *Service) ListAll(ctx context.Context) ([]Course, error) {
	courses, err := svc.repo.ListCourses(ctx, QueryFilter{})
	return courses, errors.Wrap(err, "listing courses")
}

func (svc *Service) ListByFaculty(ctx context.Context, fac *account.Faculty) ([]Course, error) {
	courses, err := svc.repo.ListCourses(ctx, QueryFilter{FacultyID: fac.Profile.ID})
	return courses, errors.Wrap(err, "listing faculty courses")
}

func (svc *Service) ListEnrolled(ctx context.Context, s *account.Student) ([]Course, error) {
	courses, err := svc.repo.ListCourses(ctx, QueryFilter{StudentID: s.Profile.ID})
	return courses, errors.Wrap(err, "listing enrolled courses")
}

// ListForStudent returns every course flagged with the student's enrollment.
func (svc *Service) ListForStudent(ctx context.Context, s *account.Student) ([]Listing, error) {
	all, err := svc.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	enrolled, err := svc.ListEnrolled(ctx, s)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]bool, len(enrolled))
	for _, c := range enrolled {
		ids[c.ID] = true
	}

	listings := make([]Listing, 0, len(all))
	for _, c := range all {
		listings = append(listings, Listing{Course: c, Enrolled: ids[c.ID]})
	}
	return listings, nil
}

// UploadMaterial stores the file and attaches it to a course owned by fac.
// The stored file is removed again if the material cannot be saved.
func (svc *Service) UploadMaterial(ctx context.Context, fac *account.Faculty, courseID int64, nm NewMaterial, file *core.Upload) (*Material, error) {
	c, err := svc.GetOwned(ctx, fac, courseID)
	if err != nil {
		return nil, err
	}
	nm.Clean()
	if err := svc.validate.Struct(nm); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, core.NewFieldError("file", "this field is required")
	}

	ref, err := svc.files.Save(ctx, MaterialsDir, *file)
	if err != nil {
		return nil, errors.Wrap(err, "storing material file")
	}
	m, err := svc.repo.CreateMaterial(ctx, Material{
		CourseID:    c.ID,
		Title:       nm.Title,
		Description: nm.Description,
		File:        ref,
		UploadedAt:  NowFunc(),
	})
	if err != nil {
		_ = svc.files.Delete(ctx, ref)
		return nil, errors.Wrap(err, "creating material")
	}
	m.URL = svc.files.URL(m.File)
	return &m, nil
}

// ListMaterials returns the materials of a course, newest first.
func (svc *Service) ListMaterials(ctx context.Context, courseID int64) (*Course, []Material, error) {
	c, err := svc.Get(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	materials, err := svc.repo.ListMaterials(ctx, c.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing materials")
	}
	for i := range materials {
		materials[i].URL = svc.files.URL(materials[i].File)
	}
	return c, materials, nil
}

// canManageEnrollment allows the course owner, or the student acting on their own enrollment.
func canManageEnrollment(p account.Principal, c *Course, studentID int64) error {
	switch p := p.(type) {
	case *account.Faculty:
		if c.FacultyID == p.Profile.ID {
			return nil
		}
		return core.NewAuthorizationError("you do not teach this course")
	case *account.Student:
		if p.Profile.ID == studentID {
			return nil
		}
	}
	return core.NewAuthorizationError("you may only manage your own enrollments")
}

// Enroll enrolls a student into a course. Enrolling twice is not an error.
func (svc *Service) Enroll(ctx context.Context, p account.Principal, courseID, studentID int64) (*Enrollment, error) {
	c, err := svc.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := canManageEnrollment(p, c, studentID); err != nil {
		return nil, err
	}
	if _, err := svc.accounts.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}

	e, err := svc.repo.Enroll(ctx, Enrollment{StudentID: studentID, CourseID: c.ID, CreatedAt: NowFunc()})
	if err != nil {
		return nil, errors.Wrap(err, "enrolling student")
	}
	return &e, nil
}

// Unenroll removes an enrollment; attendance already recorded is kept.
func (svc *Service) Unenroll(ctx context.Context, p account.Principal, courseID, studentID int64) error {
	c, err := svc.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if err := canManageEnrollment(p, c, studentID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.Unenroll(ctx, studentID, c.ID), "unenrolling student")
}

func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID int64) (bool, error) {
	ok, err := svc.repo.IsEnrolled(ctx, studentID, courseID)
	return ok, errors.Wrap(err, "checking enrollment")
}

// ListStudents returns the students enrolled in a course owned by fac.
func (svc *Service) ListStudents(ctx context.Context, fac *account.Faculty, courseID int64) (*Course, []account.Student, error) {
	c, err := svc.GetOwned(ctx, fac, courseID)
	if err != nil {
		return nil, nil, err
	}
	students, err := svc.repo.ListEnrolledStudents(ctx, c.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing enrolled students")
	}
	return c, students, nil
}

// ListCandidates returns the active students not yet enrolled in a course owned by fac, ordered by username.
func (svc *Service) ListCandidates(ctx context.Context, fac *account.Faculty, courseID int64) ([]account.Student, error) {
	_, enrolled, err := svc.ListStudents(ctx, fac, courseID)
	if err != nil {
		return nil, err
	}
	all, err := svc.accounts.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	taken := make(map[int64]bool, len(enrolled))
	for _, st := range enrolled {
		taken[st.Profile.ID] = true
	}
	candidates := make([]account.Student, 0, len(all))
	for _, st := range all {
		if st.Account.IsActive && !taken[st.Profile.ID] {
			candidates = append(candidates, st)
		}
	}
	return candidates, nil
}
