package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/course"
)

type (
	courseRow struct {
		ID        int64     `db:"id"`
		Code      string    `db:"code"`
		Name      string    `db:"name"`
		FacultyID int64     `db:"faculty_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	materialRow struct {
		ID          int64       `db:"id"`
		CourseID    int64       `db:"course_id"`
		Title       string      `db:"title"`
		Description null.String `db:"description"`
		File        string      `db:"file"`
		UploadedAt  time.Time   `db:"uploaded_at"`
	}

	enrollmentRow struct {
		StudentID int64     `db:"student_id"`
		CourseID  int64     `db:"course_id"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func (r courseRow) toCourse() course.Course {
	return course.Course{ID: r.ID, Code: r.Code, Name: r.Name, FacultyID: r.FacultyID, CreatedAt: r.CreatedAt.UTC()}
}

func (r materialRow) toMaterial() course.Material {
	return course.Material{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description.String,
		File:        r.File,
		UploadedAt:  r.UploadedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := repo.db.QueryRowxContext(ctx,
		`INSERT INTO course (code, name, faculty_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Code, c.Name, c.FacultyID, c.CreatedAt,
	).Scan(&c.ID)
	return c, errors.Wrap(err, "inserting course")
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT id, code, name, faculty_id, created_at FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, notFound(err, "course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) ListCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	query := `SELECT c.id, c.code, c.name, c.faculty_id, c.created_at FROM course c`
	var w where
	if filter.StudentID != 0 {
		query += ` JOIN enrollment e ON e.course_id = c.id`
		w.add("e.student_id = $%d", filter.StudentID)
	}
	if filter.FacultyID != 0 {
		w.add("c.faculty_id = $%d", filter.FacultyID)
	}

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query+w.String()+` ORDER BY c.code, c.id`, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) CreateMaterial(ctx context.Context, m course.Material) (course.Material, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO course_material (course_id, title, description, file, uploaded_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		m.CourseID, m.Title, optString(m.Description), m.File, m.UploadedAt,
	).Scan(&m.ID)
	return m, errors.Wrap(err, "inserting course material")
}

func (repo *courseRepository) ListMaterials(ctx context.Context, courseID int64) ([]course.Material, error) {
	var rows []materialRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, course_id, title, description, file, uploaded_at FROM course_material
		WHERE course_id = $1 ORDER BY uploaded_at DESC, id DESC`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting course materials")
	}
	materials := make([]course.Material, 0, len(rows))
	for _, r := range rows {
		materials = append(materials, r.toMaterial())
	}
	return materials, nil
}

func (repo *courseRepository) Enroll(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	var row enrollmentRow
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO enrollment (student_id, course_id, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (student_id, course_id) DO NOTHING`,
			e.StudentID, e.CourseID, e.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "inserting enrollment")
		}
		err = tx.GetContext(ctx, &row,
			`SELECT student_id, course_id, created_at FROM enrollment WHERE student_id = $1 AND course_id = $2`,
			e.StudentID, e.CourseID,
		)
		return errors.Wrap(err, "selecting enrollment")
	})
	if err != nil {
		return course.Enrollment{}, err
	}
	return course.Enrollment{StudentID: row.StudentID, CourseID: row.CourseID, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (repo *courseRepository) Unenroll(ctx context.Context, studentID, courseID int64) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM enrollment WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	return errors.Wrap(err, "deleting enrollment")
}

func (repo *courseRepository) IsEnrolled(ctx context.Context, studentID, courseID int64) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`, studentID, courseID)
	return exists, errors.Wrap(err, "checking enrollment")
}

func (repo *courseRepository) ListEnrolledStudents(ctx context.Context, courseID int64) ([]account.Student, error) {
	students, err := selectStudents(ctx, repo.db,
		studentSelect+` JOIN enrollment e ON e.student_id = p.id WHERE e.course_id = $1 ORDER BY a.username`, courseID)
	return students, errors.Wrap(err, "selecting enrolled students")
}
