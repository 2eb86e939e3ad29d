package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/course"
)

type (
	Repository interface {
		// UpsertRecords creates or overwrites the records keyed by (student, course, date) in a single transaction.
		UpsertRecords(ctx context.Context, records []Record) error
		// ListRecords returns the matching records ordered by date, then course id.
		ListRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
	}

	// QueryFilter narrows ListRecords; zero fields are ignored.
	QueryFilter struct {
		StudentID int64
		CourseID  int64
		Date      time.Time
	}

	Service struct {
		repo    Repository
		courses *course.Service
	}
)

func NewService(repo Repository, courses *course.Service) *Service {
	return &Service{repo: repo, courses: courses}
}

// RecordAttendance upserts the status of every enrolled student in statuses for the course and date.
// Students not enrolled in the course are ignored. It returns the number of records written.
// Nothing is written unless fac owns the course and every status is valid.
func (svc *Service) RecordAttendance(ctx context.Context, fac *account.Faculty, courseID int64, date time.Time, statuses map[int64]Status) (int, error) {
	c, err := svc.courses.GetOwned(ctx, fac, courseID)
	if err != nil {
		return 0, err
	}
	if date.IsZero() {
		return 0, core.NewFieldError("date", "this field is required")
	}
	for _, st := range statuses {
		if !st.Valid() {
			return 0, core.NewFieldError("status", "invalid attendance status: "+string(st))
		}
	}

	day := Date(date)
	studentIDs := make([]int64, 0, len(statuses))
	for id := range statuses {
		studentIDs = append(studentIDs, id)
	}
	sort.Slice(studentIDs, func(i, j int) bool { return studentIDs[i] < studentIDs[j] })

	records := make([]Record, 0, len(studentIDs))
	for _, id := range studentIDs {
		enrolled, err := svc.courses.IsEnrolled(ctx, id, c.ID)
		if err != nil {
			return 0, err
		}
		if !enrolled {
			continue
		}
		records = append(records, Record{StudentID: id, CourseID: c.ID, Date: day, Status: statuses[id]})
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := svc.repo.UpsertRecords(ctx, records); err != nil {
		return 0, errors.Wrap(err, "upserting attendance")
	}
	return len(records), nil
}

// Roster returns the students enrolled in a course owned by fac, with their status on date.
func (svc *Service) Roster(ctx context.Context, fac *account.Faculty, courseID int64, date time.Time) (*Roster, error) {
	c, students, err := svc.courses.ListStudents(ctx, fac, courseID)
	if err != nil {
		return nil, err
	}
	day := Date(date)

	records, err := svc.repo.ListRecords(ctx, QueryFilter{CourseID: c.ID, Date: day})
	if err != nil {
		return nil, errors.Wrap(err, "listing attendance")
	}
	byStudent := make(map[int64]Status, len(records))
	for _, r := range records {
		byStudent[r.StudentID] = r.Status
	}

	roster := &Roster{Course: *c, Date: FormatDate(day), Entries: make([]RosterEntry, 0, len(students))}
	for _, s := range students {
		roster.Entries = append(roster.Entries, RosterEntry{Student: s, Status: byStudent[s.Profile.ID]})
	}
	return roster, nil
}

// ComputeSummary returns the student's attendance per enrolled course, and the underlying records.
func (svc *Service) ComputeSummary(ctx context.Context, s *account.Student) (*Summary, error) {
	courses, err := svc.courses.ListEnrolled(ctx, s)
	if err != nil {
		return nil, err
	}
	records, err := svc.repo.ListRecords(ctx, QueryFilter{StudentID: s.Profile.ID})
	if err != nil {
		return nil, errors.Wrap(err, "listing attendance")
	}

	// unenrolled courses keep their history
	known := make(map[int64]bool, len(courses))
	for _, c := range courses {
		known[c.ID] = true
	}
	for _, r := range records {
		if known[r.CourseID] {
			continue
		}
		c, err := svc.courses.Get(ctx, r.CourseID)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
		known[c.ID] = true
	}

	if records == nil {
		records = []Record{}
	}
	return &Summary{Courses: Summarize(courses, records), Records: records}, nil
}
