package echoapi_test

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/assignment"
	"github.com/smartclass/portal/core/attendance"
	"github.com/smartclass/portal/core/course"
	"github.com/smartclass/portal/tests"
)

func TestServer_studentCourses(t *testing.T) {
	srv, svcs := setup(t)
	prof := svcs.CreateFaculty(t, "prof")
	alice := svcs.CreateStudent(t, "alice")
	cs := svcs.CreateCourse(t, prof, "CS101", "Intro to CS")
	ma := svcs.CreateCourse(t, prof, "MA101", "Calculus")
	token := login(t, srv, account.RoleStudent, "alice")

	listing := func() []course.Listing {
		req, rec := newAuthRequest(http.MethodGet, "/student/courses", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var listings []course.Listing
		decode(t, rec, &listings)
		return listings
	}

	listings := listing()
	require.Len(t, listings, 2)
	assert.False(t, listings[0].Enrolled)
	assert.False(t, listings[1].Enrolled)

	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/student/courses/%d/enroll", ma.ID), token)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	listings = listing()
	require.Len(t, listings, 2)
	assert.Equal(t, cs.ID, listings[0].ID)
	assert.False(t, listings[0].Enrolled)
	assert.Equal(t, ma.ID, listings[1].ID)
	assert.True(t, listings[1].Enrolled)

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/student/courses/9999/enroll", token)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error": "course not found"}`, rec.Body.String())
	})

	t.Run("materials", func(t *testing.T) {
		_, err := svcs.Courses.UploadMaterial(ctx(), prof, cs.ID, course.NewMaterial{Title: "Syllabus"},
			testutil.Upload("syllabus.pdf", testutil.PDF()))
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/student/courses/%d/materials", cs.ID), token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			Course    course.Course     `json:"course"`
			Materials []course.Material `json:"materials"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, cs.ID, resp.Course.ID)
		require.Len(t, resp.Materials, 1)
		assert.Equal(t, "Syllabus", resp.Materials[0].Title)
	})

	t.Run("unenroll", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/student/courses/%d/enroll", ma.ID), token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		ok, err := svcs.Courses.IsEnrolled(ctx(), alice.Profile.ID, ma.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestServer_studentAttendance(t *testing.T) {
	srv, svcs := setup(t)
	prof := svcs.CreateFaculty(t, "prof")
	alice := svcs.CreateStudent(t, "alice")
	cs := svcs.CreateCourse(t, prof, "CS101", "Intro to CS")
	ma := svcs.CreateCourse(t, prof, "MA101", "Calculus")
	svcs.Enroll(t, prof, cs, alice)
	svcs.Enroll(t, prof, ma, alice)
	token := login(t, srv, account.RoleStudent, "alice")

	day := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }
	for d, st := range map[int]attendance.Status{
		1: attendance.StatusPresent,
		2: attendance.StatusPresent,
		3: attendance.StatusAbsent,
		4: attendance.StatusPresent,
	} {
		_, err := svcs.Attendance.RecordAttendance(ctx(), prof, cs.ID, day(d), map[int64]attendance.Status{alice.Profile.ID: st})
		require.NoError(t, err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/student/attendance", token)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary attendance.Summary
	decode(t, rec, &summary)
	require.Len(t, summary.Courses, 2)
	assert.Equal(t, "CS101", summary.Courses[0].Course.Code)
	assert.Equal(t, 3, summary.Courses[0].PresentCount)
	assert.Equal(t, 4, summary.Courses[0].TotalCount)
	assert.Equal(t, 75.0, summary.Courses[0].Percentage)
	assert.Equal(t, "MA101", summary.Courses[1].Course.Code)
	assert.Equal(t, 0, summary.Courses[1].TotalCount)
	assert.Equal(t, 0.0, summary.Courses[1].Percentage)
	assert.Len(t, summary.Records, 4)
}

func TestServer_studentSubmit(t *testing.T) {
	srv, svcs := setup(t)
	prof := svcs.CreateFaculty(t, "prof")
	alice := svcs.CreateStudent(t, "alice")
	svcs.CreateStudent(t, "bob")
	cs := svcs.CreateCourse(t, prof, "CS101", "Intro to CS")
	svcs.Enroll(t, prof, cs, alice)
	a, err := svcs.Assignments.Create(ctx(), prof, assignment.NewAssignment{CourseID: cs.ID, Title: "HW1", DueDate: "2024-02-01"}, nil)
	require.NoError(t, err)

	path := fmt.Sprintf("/student/assignments/%d/submit", a.ID)
	token := login(t, srv, account.RoleStudent, "alice")

	t.Run("not enrolled", func(t *testing.T) {
		bobToken := login(t, srv, account.RoleStudent, "bob")
		req, rec := newMultipartRequest(t, path, bobToken, nil, "file", "hw1.pdf", testutil.PDF())
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/student/assignments/9999/submit", token, nil, "file", "hw1.pdf", testutil.PDF())
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		req, rec := newMultipartRequest(t, path, token, nil, "", "", nil)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file": "this field is required"}`, rec.Body.String())
	})

	t.Run("status before submitting", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"submitted":false`)
	})

	var sub assignment.Submission
	t.Run("submit", func(t *testing.T) {
		req, rec := newMultipartRequest(t, path, token, nil, "file", "hw1.pdf", testutil.PDF())
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &sub)
		assert.Equal(t, "alice", sub.StudentUsername)
		assert.FileExists(t, filepath.Join(svcs.Files.Root(), sub.File))
	})

	t.Run("second submission conflicts", func(t *testing.T) {
		req, rec := newMultipartRequest(t, path, token, nil, "file", "hw1-v2.pdf", testutil.PDF())
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error": "you have already submitted this assignment"}`, rec.Body.String())

		_, subs, err := svcs.Assignments.ListSubmissions(ctx(), prof, a.ID)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, sub.File, subs[0].File)

		// only the first file is kept
		entries, err := os.ReadDir(filepath.Join(svcs.Files.Root(), "submissions"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/student/assignments", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var listings []assignment.Listing
		decode(t, rec, &listings)
		require.Len(t, listings, 1)
		assert.True(t, listings[0].Submitted)
		require.NotNil(t, listings[0].Submission)
		assert.Equal(t, sub.ID, listings[0].Submission.ID)
	})
}

// TestServer_endToEnd walks a student and a faculty member through a whole attendance cycle.
func TestServer_endToEnd(t *testing.T) {
	srv, _ := setup(t)

	// alice registers and logs in
	req, rec := newRequest(http.MethodPost, "/student/register/", []byte(`{"username": "alice", "password": "pw123"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var alice account.Student
	decode(t, rec, &alice)
	aliceToken := login(t, srv, account.RoleStudent, "alice")

	// empty summary
	req, rec = newAuthRequest(http.MethodGet, "/student/attendance/", aliceToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"courses": [], "records": []}`, rec.Body.String())

	// a faculty member creates CS101
	req, rec = newRequest(http.MethodPost, "/faculty/register/", []byte(`{"username": "prof", "password": "pw123"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	profToken := login(t, srv, account.RoleFaculty, "prof")

	req, rec = newAuthRequest(http.MethodPost, "/faculty/courses/create/", profToken, []byte(`{"code": "CS101", "name": "Intro to CS"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cs course.Course
	decode(t, rec, &cs)

	// alice enrolls
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/student/courses/%d/enroll/", cs.ID), aliceToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// alice is present on 2024-01-10
	form := fmt.Sprintf("course=%d&date=2024-01-10&status_%d=Present", cs.ID, alice.Profile.ID)
	req, rec = newAuthRequest(http.MethodPost, "/faculty/attendance/", profToken, []byte(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newAuthRequest(http.MethodGet, "/student/attendance/", aliceToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary attendance.Summary
	decode(t, rec, &summary)
	require.Len(t, summary.Courses, 1)
	got := summary.Courses[0]
	assert.Equal(t, "CS101", got.Course.Code)
	assert.Equal(t, 1, got.PresentCount)
	assert.Equal(t, 1, got.TotalCount)
	assert.Equal(t, 100.0, got.Percentage)
	require.Len(t, summary.Records, 1)
	assert.Equal(t, "2024-01-10", attendance.FormatDate(summary.Records[0].Date))
}

func TestServer_metricsAndHealth(t *testing.T) {
	srv, svcs := setup(t)
	svcs.CreateStudent(t, "alice")
	login(t, srv, account.RoleStudent, "alice")

	req, rec := newRequest(http.MethodGet, "/healthz")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newRequest(http.MethodGet, "/metrics")
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `smartclass_http_requests_total{code="200",method="POST",route="/student/login"} 1`)
}
