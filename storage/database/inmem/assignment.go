package inmemdb

import (
	"context"
	"sort"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[a.CourseID]; !ok {
		return assignment.Assignment{}, core.NewNotFoundError("course")
	}
	a.ID = repo.db.nextPK()
	stored := a
	repo.db.assignments[a.ID] = &stored
	return a, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id int64) (assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, core.NewNotFoundError("assignment")
}

func (repo *assignmentRepository) ListAssignments(_ context.Context, filter assignment.QueryFilter) ([]assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var courseIDs map[int64]bool
	if filter.CourseIDs != nil {
		courseIDs = make(map[int64]bool, len(filter.CourseIDs))
		for _, id := range filter.CourseIDs {
			courseIDs[id] = true
		}
	}

	assignments := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignments {
		if courseIDs != nil && !courseIDs[a.CourseID] {
			continue
		}
		assignments = append(assignments, *a)
	}
	sort.Slice(assignments, func(i, j int) bool {
		if !assignments[i].DueDate.Equal(assignments[j].DueDate) {
			return assignments[i].DueDate.Before(assignments[j].DueDate)
		}
		return assignments[i].ID < assignments[j].ID
	})
	return assignments, nil
}

// must be called with the lock held
func (repo *assignmentRepository) withUsername(s assignment.Submission) assignment.Submission {
	if p, ok := repo.db.studentProfiles[s.StudentID]; ok {
		if acc, ok := repo.db.accounts[p.AccountID]; ok {
			s.StudentUsername = acc.Username
		}
	}
	return s
}

func (repo *assignmentRepository) CreateSubmission(_ context.Context, s assignment.Submission) (assignment.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := pairKey{s.AssignmentID, s.StudentID}
	if _, ok := repo.db.submissions[key]; ok {
		return assignment.Submission{}, assignment.ErrAlreadySubmitted
	}
	if _, ok := repo.db.assignments[s.AssignmentID]; !ok {
		return assignment.Submission{}, core.NewNotFoundError("assignment")
	}
	if _, ok := repo.db.studentProfiles[s.StudentID]; !ok {
		return assignment.Submission{}, core.NewNotFoundError("student")
	}
	s.ID = repo.db.nextPK()
	stored := s
	repo.db.submissions[key] = &stored
	return repo.withUsername(s), nil
}

func (repo *assignmentRepository) GetSubmission(_ context.Context, assignmentID, studentID int64) (assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.submissions[pairKey{assignmentID, studentID}]; ok {
		return repo.withUsername(*s), nil
	}
	return assignment.Submission{}, core.NewNotFoundError("submission")
}

func (repo *assignmentRepository) selectSubmissions(match func(s *assignment.Submission) bool) []assignment.Submission {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, s := range repo.db.submissions {
		if match(s) {
			subs = append(subs, repo.withUsername(*s))
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
		}
		return subs[i].ID < subs[j].ID
	})
	return subs
}

func (repo *assignmentRepository) ListSubmissions(_ context.Context, assignmentID int64) ([]assignment.Submission, error) {
	return repo.selectSubmissions(func(s *assignment.Submission) bool { return s.AssignmentID == assignmentID }), nil
}

func (repo *assignmentRepository) ListStudentSubmissions(_ context.Context, studentID int64) ([]assignment.Submission, error) {
	return repo.selectSubmissions(func(s *assignment.Submission) bool { return s.StudentID == studentID }), nil
}
