package attendance

import (
	"math"
	"sort"
	"time"

	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/course"
)

var NowFunc = func() time.Time { return time.Now().UTC() } // mockable

type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

const dateLayout = "2006-01-02"

type Record struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	CourseID  int64     `json:"course_id"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
}

// CourseSummary is the attendance of one student in one course.
type CourseSummary struct {
	Course       course.Course `json:"course"`
	PresentCount int           `json:"present_count"`
	TotalCount   int           `json:"total_count"`
	Percentage   float64       `json:"percentage"`
}

type Summary struct {
	Courses []CourseSummary `json:"courses"`
	Records []Record        `json:"records"`
}

// RosterEntry is an enrolled student and the status recorded for the roster date, if any.
type RosterEntry struct {
	Student account.Student `json:"student"`
	Status  Status          `json:"status,omitempty"`
}

type Roster struct {
	Course  course.Course `json:"course"`
	Date    string        `json:"date"`
	Entries []RosterEntry `json:"entries"`
}

// Percentage returns present/total*100 rounded to 2 decimal places, 0 when total is 0.
func Percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}

// Summarize groups records by course. Every course in courses is reported, even without records.
// Records of courses missing from courses are still counted, using a course with only its ID set.
// The result is ordered by course code, then course id.
func Summarize(courses []course.Course, records []Record) []CourseSummary {
	byCourse := make(map[int64]*CourseSummary, len(courses))
	for _, c := range courses {
		byCourse[c.ID] = &CourseSummary{Course: c}
	}
	for _, r := range records {
		cs, ok := byCourse[r.CourseID]
		if !ok {
			cs = &CourseSummary{Course: course.Course{ID: r.CourseID}}
			byCourse[r.CourseID] = cs
		}
		cs.TotalCount++
		if r.Status == StatusPresent {
			cs.PresentCount++
		}
	}

	summaries := make([]CourseSummary, 0, len(byCourse))
	for _, cs := range byCourse {
		cs.Percentage = Percentage(cs.PresentCount, cs.TotalCount)
		summaries = append(summaries, *cs)
	}
	sort.Slice(summaries, func(i, j int) bool {
		ci, cj := summaries[i].Course, summaries[j].Course
		if ci.Code != cj.Code {
			return ci.Code < cj.Code
		}
		return ci.ID < cj.ID
	})
	return summaries
}

// Date truncates t to its calendar day in UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
