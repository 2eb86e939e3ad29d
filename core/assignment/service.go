package assignment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/course"
)

const (
	assignmentsDir = "assignments"
	submissionsDir = "submissions"
)

var (
	// errors
	ErrAlreadySubmitted = errors.New("you have already submitted this assignment")

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id int64) (Assignment, error)
		// ListAssignments returns the matching assignments ordered by due date, then id.
		ListAssignments(ctx context.Context, filter QueryFilter) ([]Assignment, error)
		// CreateSubmission returns ErrAlreadySubmitted when the student already submitted the assignment.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, assignmentID, studentID int64) (Submission, error)
		// ListSubmissions returns the submissions of an assignment ordered by submission time.
		ListSubmissions(ctx context.Context, assignmentID int64) ([]Submission, error)
		ListStudentSubmissions(ctx context.Context, studentID int64) ([]Submission, error)
	}

	Service struct {
		repo     Repository
		courses  *course.Service
		files    core.FileStore
		validate *validator.Validate
	}
)

func NewService(repo Repository, courses *course.Service, files core.FileStore, validate *validator.Validate) *Service {
	return &Service{repo: repo, courses: courses, files: files, validate: validate}
}

func (svc *Service) withURL(a Assignment) Assignment {
	if a.File != "" {
		a.URL = svc.files.URL(a.File)
	}
	return a
}

// Create adds an assignment to a course owned by fac. file is optional.
func (svc *Service) Create(ctx context.Context, fac *account.Faculty, na NewAssignment, file *core.Upload) (*Assignment, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return nil, err
	}
	c, err := svc.courses.GetOwned(ctx, fac, na.CourseID)
	if err != nil {
		return nil, err
	}
	due, err := time.Parse("2006-01-02", na.DueDate)
	if err != nil {
		return nil, core.NewFieldError("due_date", "enter a valid date (YYYY-MM-DD)")
	}

	a := Assignment{
		CourseID:    c.ID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     due,
		CreatedAt:   NowFunc(),
	}
	if file != nil {
		if a.File, err = svc.files.Save(ctx, assignmentsDir, *file); err != nil {
			return nil, errors.Wrap(err, "storing assignment file")
		}
	}

	saved, err := svc.repo.CreateAssignment(ctx, a)
	if err != nil {
		if a.File != "" {
			_ = svc.files.Delete(ctx, a.File)
		}
		return nil, errors.Wrap(err, "creating assignment")
	}
	saved = svc.withURL(saved)
	return &saved, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (*Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "getting assignment")
	}
	a = svc.withURL(a)
	return &a, nil
}

// getForStudent returns the assignment if s is enrolled in its course.
func (svc *Service) getForStudent(ctx context.Context, s *account.Student, assignmentID int64) (*Assignment, error) {
	a, err := svc.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	enrolled, err := svc.courses.IsEnrolled(ctx, s.Profile.ID, a.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, core.NewAuthorizationError("you are not enrolled in this course")
	}
	return a, nil
}

// SubmissionStatus returns the assignment and the student's submission, nil if not submitted yet.
func (svc *Service) SubmissionStatus(ctx context.Context, s *account.Student, assignmentID int64) (*Assignment, *Submission, error) {
	a, err := svc.getForStudent(ctx, s, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := svc.repo.GetSubmission(ctx, a.ID, s.Profile.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return a, nil, nil
		}
		return nil, nil, errors.Wrap(err, "getting submission")
	}
	sub.URL = svc.files.URL(sub.File)
	return a, &sub, nil
}

// Submit records the student's single submission for an assignment.
// A second submission fails with a ConflictError and leaves the first one untouched.
func (svc *Service) Submit(ctx context.Context, s *account.Student, assignmentID int64, file *core.Upload) (*Submission, error) {
	a, err := svc.getForStudent(ctx, s, assignmentID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, core.NewFieldError("file", "this field is required")
	}

	ref, err := svc.files.Save(ctx, submissionsDir, *file)
	if err != nil {
		return nil, errors.Wrap(err, "storing submission file")
	}
	sub, err := svc.repo.CreateSubmission(ctx, Submission{
		AssignmentID: a.ID,
		StudentID:    s.Profile.ID,
		File:         ref,
		SubmittedAt:  NowFunc(),
	})
	if err != nil {
		_ = svc.files.Delete(ctx, ref)
		if errors.Cause(err) == ErrAlreadySubmitted {
			return nil, core.NewConflictError(ErrAlreadySubmitted.Error())
		}
		return nil, errors.Wrap(err, "creating submission")
	}
	sub.StudentUsername = s.Account.Username
	sub.URL = svc.files.URL(sub.File)
	return &sub, nil
}

// ListSubmissions returns the submissions of an assignment whose course fac owns.
func (svc *Service) ListSubmissions(ctx context.Context, fac *account.Faculty, assignmentID int64) (*Assignment, []Submission, error) {
	a, err := svc.Get(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := svc.courses.GetOwned(ctx, fac, a.CourseID); err != nil {
		return nil, nil, err
	}
	subs, err := svc.repo.ListSubmissions(ctx, a.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing submissions")
	}
	for i := range subs {
		subs[i].URL = svc.files.URL(subs[i].File)
	}
	return a, subs, nil
}

func (svc *Service) listForCourses(ctx context.Context, courses []course.Course) ([]Listing, error) {
	listings := make([]Listing, 0)
	if len(courses) == 0 {
		return listings, nil
	}

	byID := make(map[int64]course.Course, len(courses))
	ids := make([]int64, 0, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	assignments, err := svc.repo.ListAssignments(ctx, QueryFilter{CourseIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "listing assignments")
	}
	for _, a := range assignments {
		listings = append(listings, Listing{Assignment: svc.withURL(a), Course: byID[a.CourseID]})
	}
	return listings, nil
}

// ListForStudent returns the assignments of the student's courses, with their submission status.
func (svc *Service) ListForStudent(ctx context.Context, s *account.Student) ([]Listing, error) {
	courses, err := svc.courses.ListEnrolled(ctx, s)
	if err != nil {
		return nil, err
	}
	listings, err := svc.listForCourses(ctx, courses)
	if err != nil {
		return nil, err
	}

	subs, err := svc.repo.ListStudentSubmissions(ctx, s.Profile.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing student submissions")
	}
	byAssignment := make(map[int64]Submission, len(subs))
	for _, sub := range subs {
		sub.URL = svc.files.URL(sub.File)
		byAssignment[sub.AssignmentID] = sub
	}
	for i := range listings {
		if sub, ok := byAssignment[listings[i].ID]; ok {
			sub := sub
			listings[i].Submission = &sub
			listings[i].Submitted = true
		}
	}
	return listings, nil
}

// ListForFaculty returns the assignments of the courses fac teaches.
func (svc *Service) ListForFaculty(ctx context.Context, fac *account.Faculty) ([]Listing, error) {
	courses, err := svc.courses.ListByFaculty(ctx, fac)
	if err != nil {
		return nil, err
	}
	return svc.listForCourses(ctx, courses)
}
