package assignment

import (
	"time"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/course"
)

type Assignment struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	File        string    `json:"file,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Submission struct {
	ID              int64     `json:"id"`
	AssignmentID    int64     `json:"assignment_id"`
	StudentID       int64     `json:"student_id"`
	StudentUsername string    `json:"student_username"`
	File            string    `json:"file"`
	URL             string    `json:"url,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Listing is an assignment with its course and, for students, their own submission.
type Listing struct {
	Assignment
	Course     course.Course `json:"course"`
	Submission *Submission   `json:"submission,omitempty"`
	Submitted  bool          `json:"submitted"`
}

type NewAssignment struct {
	CourseID    int64  `json:"course_id" form:"course_id" validate:"required"`
	Title       string `json:"title" form:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" form:"description"`
	DueDate     string `json:"due_date" form:"due_date" validate:"required,datetime=2006-01-02"`
}

func (na *NewAssignment) Clean() {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.DueDate = core.CleanString(na.DueDate)
}

// QueryFilter narrows ListAssignments; an empty filter matches every assignment.
type QueryFilter struct {
	CourseIDs []int64
}
