package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smartclass/portal/core/course"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		present, total int
		want           float64
	}{
		{0, 0, 0},
		{0, 5, 0},
		{3, 4, 75},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 1, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.present, tt.total), "%d/%d", tt.present, tt.total)
	}
}

func TestSummarize(t *testing.T) {
	cs := course.Course{ID: 2, Code: "CS101"}
	ma := course.Course{ID: 1, Code: "MA101"}
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{StudentID: 1, CourseID: 2, Date: d, Status: StatusPresent},
		{StudentID: 1, CourseID: 2, Date: d.AddDate(0, 0, 1), Status: StatusAbsent},
		{StudentID: 1, CourseID: 3, Date: d, Status: StatusPresent},
	}

	got := Summarize([]course.Course{ma, cs}, records)
	assert.Equal(t, []CourseSummary{
		{Course: course.Course{ID: 3}, PresentCount: 1, TotalCount: 1, Percentage: 100},
		{Course: cs, PresentCount: 1, TotalCount: 2, Percentage: 50},
		{Course: ma},
	}, got)

	assert.Empty(t, Summarize(nil, nil))
	assert.NotNil(t, Summarize(nil, nil))
}

func TestDate(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got := Date(time.Date(2024, 1, 10, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), got)

	parsed, err := ParseDate("2024-01-10")
	assert.NoError(t, err)
	assert.Equal(t, "2024-01-10", FormatDate(parsed))

	_, err = ParseDate("10/01/2024")
	assert.Error(t, err)
}
