package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core/attendance"
)

type recordRow struct {
	ID        int64     `db:"id"`
	StudentID int64     `db:"student_id"`
	CourseID  int64     `db:"course_id"`
	Date      time.Time `db:"date"`
	Status    string    `db:"status"`
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecords(ctx context.Context, records []attendance.Record) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO attendance (student_id, course_id, date, status) VALUES ($1, $2, $3, $4)
			ON CONFLICT (student_id, course_id, date) DO UPDATE SET status = EXCLUDED.status`)
		if err != nil {
			return errors.Wrap(err, "preparing attendance upsert")
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.StudentID, r.CourseID, r.Date, string(r.Status)); err != nil {
				return errors.Wrap(err, "upserting attendance")
			}
		}
		return nil
	})
}

func (repo *attendanceRepository) ListRecords(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	var w where
	if filter.StudentID != 0 {
		w.add("student_id = $%d", filter.StudentID)
	}
	if filter.CourseID != 0 {
		w.add("course_id = $%d", filter.CourseID)
	}
	if !filter.Date.IsZero() {
		w.add("date = $%d", filter.Date)
	}

	var rows []recordRow
	query := `SELECT id, student_id, course_id, date, status FROM attendance` + w.String() + ` ORDER BY date, course_id, student_id`
	if err := repo.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, attendance.Record{
			ID:        r.ID,
			StudentID: r.StudentID,
			CourseID:  r.CourseID,
			Date:      attendance.Date(r.Date),
			Status:    attendance.Status(r.Status),
		})
	}
	return records, nil
}
