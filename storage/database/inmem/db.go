// Package inmemdb holds in-memory repositories with the same uniqueness semantics as the Postgres schema.
package inmemdb

import (
	"sync"

	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/assignment"
	"github.com/smartclass/portal/core/attendance"
	"github.com/smartclass/portal/core/course"
)

type (
	pairKey struct{ a, b int64 }

	recordKey struct {
		studentID, courseID int64
		date                string
	}

	// DB is shared by every repository opened on it. A single lock makes multi-table writes atomic.
	DB struct {
		mu     sync.RWMutex
		lastPK int64

		accounts        map[int64]*account.Account
		studentProfiles map[int64]*account.StudentProfile // by profile id
		facultyProfiles map[int64]*account.FacultyProfile // by profile id

		courses     map[int64]*course.Course
		materials   map[int64]*course.Material
		enrollments map[pairKey]*course.Enrollment // {student, course}

		records map[recordKey]*attendance.Record

		assignments map[int64]*assignment.Assignment
		submissions map[pairKey]*assignment.Submission // {assignment, student}
	}
)

func Open() *DB {
	return &DB{
		accounts:        make(map[int64]*account.Account),
		studentProfiles: make(map[int64]*account.StudentProfile),
		facultyProfiles: make(map[int64]*account.FacultyProfile),
		courses:         make(map[int64]*course.Course),
		materials:       make(map[int64]*course.Material),
		enrollments:     make(map[pairKey]*course.Enrollment),
		records:         make(map[recordKey]*attendance.Record),
		assignments:     make(map[int64]*assignment.Assignment),
		submissions:     make(map[pairKey]*assignment.Submission),
	}
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int64 {
	db.lastPK++
	return db.lastPK
}
