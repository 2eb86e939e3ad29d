package inmemdb

import (
	"context"
	"sort"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecords(_ context.Context, records []attendance.Record) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// validate everything first: all or nothing
	for _, r := range records {
		if _, ok := repo.db.studentProfiles[r.StudentID]; !ok {
			return core.NewNotFoundError("student")
		}
		if _, ok := repo.db.courses[r.CourseID]; !ok {
			return core.NewNotFoundError("course")
		}
	}

	for _, r := range records {
		r.Date = attendance.Date(r.Date)
		key := recordKey{r.StudentID, r.CourseID, attendance.FormatDate(r.Date)}
		if existing, ok := repo.db.records[key]; ok {
			existing.Status = r.Status
			continue
		}
		r.ID = repo.db.nextPK()
		stored := r
		repo.db.records[key] = &stored
	}
	return nil
}

func (repo *attendanceRepository) ListRecords(_ context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var day string
	if !filter.Date.IsZero() {
		day = attendance.FormatDate(attendance.Date(filter.Date))
	}

	records := make([]attendance.Record, 0)
	for key, r := range repo.db.records {
		if filter.StudentID != 0 && r.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != 0 && r.CourseID != filter.CourseID {
			continue
		}
		if day != "" && key.date != day {
			continue
		}
		records = append(records, *r)
	}
	sort.Slice(records, func(i, j int) bool {
		ri, rj := records[i], records[j]
		if !ri.Date.Equal(rj.Date) {
			return ri.Date.Before(rj.Date)
		}
		if ri.CourseID != rj.CourseID {
			return ri.CourseID < rj.CourseID
		}
		return ri.StudentID < rj.StudentID
	})
	return records, nil
}
