package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/smartclass/portal/core/assignment"
)

const submissionUniqueConstraint = "assignment_submission_assignment_student_key"

type (
	assignmentRow struct {
		ID          int64       `db:"id"`
		CourseID    int64       `db:"course_id"`
		Title       string      `db:"title"`
		Description null.String `db:"description"`
		DueDate     time.Time   `db:"due_date"`
		File        null.String `db:"file"`
		CreatedAt   time.Time   `db:"created_at"`
	}

	submissionRow struct {
		ID              int64     `db:"id"`
		AssignmentID    int64     `db:"assignment_id"`
		StudentID       int64     `db:"student_id"`
		StudentUsername string    `db:"student_username"`
		File            string    `db:"file"`
		SubmittedAt     time.Time `db:"submitted_at"`
	}
)

const (
	assignmentSelect = `SELECT id, course_id, title, description, due_date, file, created_at FROM assignment`
	submissionSelect = `SELECT s.id, s.assignment_id, s.student_id, a.username AS student_username, s.file, s.submitted_at
	FROM assignment_submission s
		JOIN student_profile p ON p.id = s.student_id
		JOIN account a ON a.id = p.account_id`
)

func (r assignmentRow) toAssignment() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description.String,
		DueDate:     r.DueDate.UTC(),
		File:        r.File.String,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func (r submissionRow) toSubmission() assignment.Submission {
	return assignment.Submission{
		ID:              r.ID,
		AssignmentID:    r.AssignmentID,
		StudentID:       r.StudentID,
		StudentUsername: r.StudentUsername,
		File:            r.File,
		SubmittedAt:     r.SubmittedAt.UTC(),
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO assignment (course_id, title, description, due_date, file, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.CourseID, a.Title, optString(a.Description), a.DueDate, optString(a.File), a.CreatedAt,
	).Scan(&a.ID)
	return a, errors.Wrap(err, "inserting assignment")
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id int64) (assignment.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, assignmentSelect+` WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, notFound(err, "assignment")
	}
	return row.toAssignment(), nil
}

func (repo *assignmentRepository) ListAssignments(ctx context.Context, filter assignment.QueryFilter) ([]assignment.Assignment, error) {
	var w where
	if filter.CourseIDs != nil {
		w.add("course_id = ANY($%d)", pq.Array(filter.CourseIDs))
	}

	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, assignmentSelect+w.String()+` ORDER BY due_date, id`, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.toAssignment())
	}
	return assignments, nil
}

// CreateSubmission relies on the (assignment_id, student_id) unique constraint; there is no prior read.
func (repo *assignmentRepository) CreateSubmission(ctx context.Context, s assignment.Submission) (assignment.Submission, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO assignment_submission (assignment_id, student_id, file, submitted_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		s.AssignmentID, s.StudentID, s.File, s.SubmittedAt,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err, submissionUniqueConstraint) {
			return assignment.Submission{}, assignment.ErrAlreadySubmitted
		}
		return assignment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return s, nil
}

func (repo *assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID int64) (assignment.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, submissionSelect+` WHERE s.assignment_id = $1 AND s.student_id = $2`, assignmentID, studentID)
	if err != nil {
		return assignment.Submission{}, notFound(err, "submission")
	}
	return row.toSubmission(), nil
}

func (repo *assignmentRepository) selectSubmissions(ctx context.Context, cond string, arg interface{}) ([]assignment.Submission, error) {
	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, submissionSelect+` WHERE `+cond+` ORDER BY s.submitted_at, s.id`, arg); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	subs := make([]assignment.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toSubmission())
	}
	return subs, nil
}

func (repo *assignmentRepository) ListSubmissions(ctx context.Context, assignmentID int64) ([]assignment.Submission, error) {
	return repo.selectSubmissions(ctx, "s.assignment_id = $1", assignmentID)
}

func (repo *assignmentRepository) ListStudentSubmissions(ctx context.Context, studentID int64) ([]assignment.Submission, error) {
	return repo.selectSubmissions(ctx, "s.student_id = $1", studentID)
}
