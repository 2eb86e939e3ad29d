package course

import (
	"time"

	"github.com/smartclass/portal/core"
)

type Course struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	FacultyID int64     `json:"faculty_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Material struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	File        string    `json:"file"`
	URL         string    `json:"url,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type Enrollment struct {
	StudentID int64     `json:"student_id"`
	CourseID  int64     `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Listing is a course as seen by a student.
type Listing struct {
	Course
	Enrolled bool `json:"enrolled"`
}

type NewCourse struct {
	Code string `json:"code" form:"code" validate:"required,notblank,max=20"`
	Name string `json:"name" form:"name" validate:"required,notblank,max=100"`
}

func (nc *NewCourse) Clean() {
	nc.Code = core.CleanString(nc.Code)
	nc.Name = core.CleanString(nc.Name)
}

type NewMaterial struct {
	Title       string `json:"title" form:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" form:"description"`
}

func (nm *NewMaterial) Clean() {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
}

// QueryFilter narrows ListCourses; zero fields are ignored.
type QueryFilter struct {
	FacultyID int64
	StudentID int64 // enrolled student
}
