package echoapi_test

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/core/assignment"
	"github.com/smartclass/portal/core/attendance"
	"github.com/smartclass/portal/core/course"
	"github.com/smartclass/portal/tests"
)

func TestServer_facultyCourses(t *testing.T) {
	srv, svcs := setup(t)
	prof := svcs.CreateFaculty(t, "prof")
	other := svcs.CreateFaculty(t, "other")
	alice := svcs.CreateStudent(t, "alice")
	token := login(t, srv, account.RoleFaculty, "prof")
	otherCourse := svcs.CreateCourse(t, other, "MA101", "Calculus")

	var cs101 course.Course
	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/faculty/courses/create", token, []byte(`{"code": " CS101 ", "name": "Intro to CS"}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &cs101)
		assert.Equal(t, "CS101", cs101.Code)
		assert.Equal(t, prof.Profile.ID, cs101.FacultyID)
	})

	studentsPath := fmt.Sprintf("/faculty/courses/%d/students", cs101.ID)
	tests := []httpTest{
		{
			name: "create invalid", method: http.MethodPost, path: "/faculty/courses/create", token: token,
			body:     []byte(`{"code": "   ", "name": ""}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"code": "this field is required", "name": "this field is required"}),
		},
		{name: "owned courses", path: "/faculty/courses", token: token, wantCode: http.StatusOK, wantData: marshallObj(t, []course.Course{cs101})},
		{
			name: "enroll", method: http.MethodPost, path: studentsPath, token: token,
			body: []byte(fmt.Sprintf(`{"student_id": %d}`, alice.Profile.ID)), wantCode: http.StatusOK,
		},
		{
			name: "enroll twice", method: http.MethodPost, path: studentsPath, token: token,
			body: []byte(fmt.Sprintf(`{"student_id": %d}`, alice.Profile.ID)), wantCode: http.StatusOK,
		},
		{
			name: "enroll unknown student", method: http.MethodPost, path: studentsPath, token: token,
			body: []byte(`{"student_id": 9999}`), wantCode: http.StatusNotFound,
		},
		{
			name: "enroll into a course taught by someone else", method: http.MethodPost, token: token,
			path: fmt.Sprintf("/faculty/courses/%d/students", otherCourse.ID),
			body: []byte(fmt.Sprintf(`{"student_id": %d}`, alice.Profile.ID)), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name: "students of a course taught by someone else", token: token,
			path: fmt.Sprintf("/faculty/courses/%d/students", otherCourse.ID), wantCode: http.StatusForbidden,
		},
		{name: "unknown course", path: "/faculty/courses/9999/students", token: token, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, srv, tests)

	t.Run("roster", func(t *testing.T) {
		svcs.CreateStudent(t, "bob")
		req, rec := newAuthRequest(http.MethodGet, studentsPath, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp struct {
			Students   []account.Student `json:"students"`
			Candidates []account.Student `json:"candidates"`
		}
		decode(t, rec, &resp)
		require.Len(t, resp.Students, 1)
		assert.Equal(t, "alice", resp.Students[0].Account.Username)
		require.Len(t, resp.Candidates, 1)
		assert.Equal(t, "bob", resp.Candidates[0].Account.Username)
	})

	t.Run("unenroll", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, studentsPath+"/"+strconv.FormatInt(alice.Profile.ID, 10), token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		ok, err := svcs.Courses.IsEnrolled(ctx(), alice.Profile.ID, cs101.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestServer_facultyUploadMaterial(t *testing.T) {
	srv, svcs := setup(t)
	prof := svcs.CreateFaculty(t, "prof")
	svcs.CreateFaculty(t, "other")
	c := svcs.CreateCourse(t, prof, "CS101", "Intro to CS")
	path := fmt.Sprintf("/faculty/courses/%d/materials/upload", c.ID)

	t.Run("non-owner", func(t *testing.T) {
		token := login(t, srv, account.RoleFaculty, "other")
		req, rec := newMultipartRequest(t, path, token, map[string]string{"title": "Week 1"}, "file", "w1.pdf", testutil.PDF())
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		_, materials, err := svcs.Courses.ListMaterials(ctx(), c.ID)
		require.NoError(t, err)
		assert.Empty(t, materials)
	})

	token := login(t, srv, account.RoleFaculty, "prof")

	t.Run("missing file", func(t *testing.T) {
		req, rec := newMultipartRequest(t, path, token, map[string]string{"title": "Week 1"}, "", "", nil)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file": "this field is required"}`, rec.Body.String())
	})

	t.Run("unsupported file", func(t *testing.T) {
		req, rec := newMultipartRequest(t, path, token, map[string]string{"title": "Week 1"}, "file", "w1.exe", elfContent)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unsupported file type")
	})

	t.Run("upload", func(t *testing.T) {
		req, rec := newMultipartRequest(t, path, token, map[string]string{"title": "Week 1", "description": "slides"}, "file", "w1.pdf", testutil.PDF())
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var m course.Material
		decode(t, rec, &m)
		assert.Equal(t, "Week 1", m.Title)
		assert.Equal(t, c.ID, m.CourseID)
		assert.FileExists(t, svcs.Files.Root()+"/"+m.File)

		// served from the media root
		req, rec = newRequest(http.MethodGet, m.URL)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testutil.PDF(), rec.Body.Bytes())
	})

	t.Run("upload page", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Week 1")
	})
}

func TestServer_facultyAttendance(t *testing.T) {
	srv, svcs := setup(t)
	prof := svcs.CreateFaculty(t, "prof")
	svcs.CreateFaculty(t, "other")
	alice := svcs.CreateStudent(t, "alice")
	bob := svcs.CreateStudent(t, "bob")
	outsider := svcs.CreateStudent(t, "zed")
	c := svcs.CreateCourse(t, prof, "CS101", "Intro to CS")
	svcs.Enroll(t, prof, c, alice, bob)
	token := login(t, srv, account.RoleFaculty, "prof")

	t.Run("course list without a course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/faculty/attendance", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "CS101")
	})

	t.Run("invalid date", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/faculty/attendance?course=%d&date=10/01/2024", c.ID), token)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"date": "enter a valid date (YYYY-MM-DD)"}`, rec.Body.String())
	})

	t.Run("non-owner writes nothing", func(t *testing.T) {
		otherToken := login(t, srv, account.RoleFaculty, "other")
		form := fmt.Sprintf("course=%d&date=2024-01-10&status_%d=Present", c.ID, alice.Profile.ID)
		req, rec := newAuthRequest(http.MethodPost, "/faculty/attendance", otherToken, []byte(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		records, err := svcs.AttendanceRepo.ListRecords(ctx(), attendance.QueryFilter{CourseID: c.ID})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("invalid status", func(t *testing.T) {
		form := fmt.Sprintf("course=%d&date=2024-01-10&status_%d=Late", c.ID, alice.Profile.ID)
		req, rec := newAuthRequest(http.MethodPost, "/faculty/attendance", token, []byte(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("record form; missing statuses default to absent", func(t *testing.T) {
		form := fmt.Sprintf("course=%d&date=2024-01-10&status_%d=Present&status_%d=Present",
			c.ID, alice.Profile.ID, outsider.Profile.ID)
		req, rec := newAuthRequest(http.MethodPost, "/faculty/attendance", token, []byte(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Recorded int               `json:"recorded"`
			Roster   attendance.Roster `json:"roster"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, 2, resp.Recorded)
		assert.Equal(t, "2024-01-10", resp.Roster.Date)
		require.Len(t, resp.Roster.Entries, 2)
		assert.Equal(t, attendance.StatusPresent, resp.Roster.Entries[0].Status) // alice
		assert.Equal(t, attendance.StatusAbsent, resp.Roster.Entries[1].Status)  // bob
	})

	t.Run("record json twice keeps one record per student", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"course": "%d", "date": "2024-01-10", "statuses": {"%d": "Absent", "%d": "Present"}}`,
			c.ID, alice.Profile.ID, bob.Profile.ID))
		for i := 0; i < 2; i++ {
			req, rec := newAuthRequest(http.MethodPost, "/faculty/attendance", token, body)
			srv.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}

		records, err := svcs.AttendanceRepo.ListRecords(ctx(), attendance.QueryFilter{CourseID: c.ID})
		require.NoError(t, err)
		require.Len(t, records, 2)
		got := map[int64]attendance.Status{}
		for _, r := range records {
			got[r.StudentID] = r.Status
		}
		assert.Equal(t, map[int64]attendance.Status{
			alice.Profile.ID: attendance.StatusAbsent,
			bob.Profile.ID:   attendance.StatusPresent,
		}, got)
	})

	t.Run("roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/faculty/attendance?course=%d&date=2024-01-10", c.ID), token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var roster attendance.Roster
		decode(t, rec, &roster)
		require.Len(t, roster.Entries, 2)
		assert.Equal(t, attendance.StatusAbsent, roster.Entries[0].Status)
		assert.Equal(t, attendance.StatusPresent, roster.Entries[1].Status)
	})
}

func TestServer_facultyAssignments(t *testing.T) {
	srv, svcs := setup(t)
	prof := svcs.CreateFaculty(t, "prof")
	other := svcs.CreateFaculty(t, "other")
	c := svcs.CreateCourse(t, prof, "CS101", "Intro to CS")
	otherCourse := svcs.CreateCourse(t, other, "MA101", "Calculus")
	token := login(t, srv, account.RoleFaculty, "prof")

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/faculty/assignments/create", token: token,
			body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"course_id": "this field is required",
				"title":     "this field is required",
				"due_date":  "this field is required",
			}),
		},
		{
			name: "invalid due date", method: http.MethodPost, path: "/faculty/assignments/create", token: token,
			body:     []byte(fmt.Sprintf(`{"course_id": %d, "title": "HW1", "due_date": "soon"}`, c.ID)),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"due_date": "enter a valid date (YYYY-MM-DD)"}),
		},
		{
			name: "course taught by someone else", method: http.MethodPost, path: "/faculty/assignments/create", token: token,
			body:     []byte(fmt.Sprintf(`{"course_id": %d, "title": "HW1", "due_date": "2024-02-01"}`, otherCourse.ID)),
			wantCode: http.StatusForbidden,
		},
		{name: "create page", path: "/faculty/assignments/create", token: token, wantCode: http.StatusOK},
	}
	runHTTPTests(t, srv, tests)

	var a assignment.Assignment
	t.Run("create with a file", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/faculty/assignments/create", token, map[string]string{
			"course_id": strconv.FormatInt(c.ID, 10),
			"title":     "HW1",
			"due_date":  "2024-02-01",
		}, "file", "hw1.pdf", testutil.PDF())
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &a)
		assert.Equal(t, "HW1", a.Title)
		assert.NotEmpty(t, a.URL)
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/faculty/assignments", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var listings []assignment.Listing
		decode(t, rec, &listings)
		require.Len(t, listings, 1)
		assert.Equal(t, a.ID, listings[0].ID)
		assert.Equal(t, "CS101", listings[0].Course.Code)
	})

	t.Run("submissions of someone else's assignment", func(t *testing.T) {
		otherToken := login(t, srv, account.RoleFaculty, "other")
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/faculty/assignments/%d/submissions", a.ID), otherToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("submissions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/faculty/assignments/%d/submissions", a.ID), token)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}
