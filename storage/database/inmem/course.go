package inmemdb

import (
	"context"
	"sort"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.facultyProfiles[c.FacultyID]; !ok {
		return course.Course{}, core.NewNotFoundError("faculty")
	}
	c.ID = repo.db.nextPK()
	stored := c
	repo.db.courses[c.ID] = &stored
	return c, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int64) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, core.NewNotFoundError("course")
}

func (repo *courseRepository) ListCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0)
	for _, c := range repo.db.courses {
		if filter.FacultyID != 0 && c.FacultyID != filter.FacultyID {
			continue
		}
		if filter.StudentID != 0 {
			if _, ok := repo.db.enrollments[pairKey{filter.StudentID, c.ID}]; !ok {
				continue
			}
		}
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].Code != courses[j].Code {
			return courses[i].Code < courses[j].Code
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (repo *courseRepository) CreateMaterial(_ context.Context, m course.Material) (course.Material, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[m.CourseID]; !ok {
		return course.Material{}, core.NewNotFoundError("course")
	}
	m.ID = repo.db.nextPK()
	stored := m
	repo.db.materials[m.ID] = &stored
	return m, nil
}

func (repo *courseRepository) ListMaterials(_ context.Context, courseID int64) ([]course.Material, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	materials := make([]course.Material, 0)
	for _, m := range repo.db.materials {
		if m.CourseID == courseID {
			materials = append(materials, *m)
		}
	}
	sort.Slice(materials, func(i, j int) bool {
		if !materials[i].UploadedAt.Equal(materials[j].UploadedAt) {
			return materials[i].UploadedAt.After(materials[j].UploadedAt)
		}
		return materials[i].ID > materials[j].ID
	})
	return materials, nil
}

func (repo *courseRepository) Enroll(_ context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := pairKey{e.StudentID, e.CourseID}
	if existing, ok := repo.db.enrollments[key]; ok {
		return *existing, nil
	}
	if _, ok := repo.db.studentProfiles[e.StudentID]; !ok {
		return course.Enrollment{}, core.NewNotFoundError("student")
	}
	if _, ok := repo.db.courses[e.CourseID]; !ok {
		return course.Enrollment{}, core.NewNotFoundError("course")
	}
	stored := e
	repo.db.enrollments[key] = &stored
	return e, nil
}

func (repo *courseRepository) Unenroll(_ context.Context, studentID, courseID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.enrollments, pairKey{studentID, courseID})
	return nil
}

func (repo *courseRepository) IsEnrolled(_ context.Context, studentID, courseID int64) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.enrollments[pairKey{studentID, courseID}]
	return ok, nil
}

func (repo *courseRepository) ListEnrolledStudents(_ context.Context, courseID int64) ([]account.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.db.students(func(p *account.StudentProfile) bool {
		_, ok := repo.db.enrollments[pairKey{p.ID, courseID}]
		return ok
	}), nil
}
