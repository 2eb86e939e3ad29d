package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/smartclass/portal/apps/api/echo"
	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/storage/session"
	"github.com/smartclass/portal/tests"
)

var (
	errAuthRequired = httpErr{Error: "authentication required"}
	errForbidden    = httpErr{Error: "permission denied"}

	pngContent = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	elfContent = append([]byte("\x7fELF\x02\x01\x01\x00"), make([]byte, 56)...)
)

func ctx() context.Context { return context.Background() }

func setup(t *testing.T) (*Server, *testutil.Services) {
	svcs := testutil.NewServices(t)
	srv := NewServer(ServerDeps{
		Conf:           svcs.Conf,
		Logger:         svcs.Logger,
		Validate:       svcs.Validate,
		Translator:     svcs.Translator,
		AccountSvc:     svcs.Accounts,
		CourseSvc:      svcs.Courses,
		AttendanceSvc:  svcs.Attendance,
		AssignmentSvc:  svcs.Assignments,
		Revoker:        session.NewMemoryRevoker(),
		Files:          svcs.Files,
		MediaRoot:      svcs.Files.Root(),
		HealthCheckers: map[string]core.HealthChecker{},
	})
	t.Cleanup(func() { _ = srv.Close() })
	return srv, svcs
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newMultipartRequest sends fields and, when content is not nil, a file in the "file" field.
func newMultipartRequest(
	t *testing.T,
	path, token string,
	fields map[string]string,
	fileField, filename string,
	content []byte,
) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if content != nil {
		fw, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, srv *Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// login signs in through the API and returns the session token.
func login(t *testing.T, srv *Server, role account.Role, username string) string {
	body := marshallObj(t, map[string]string{"username": username, "password": testutil.DefaultPassword})
	req, rec := newRequest(http.MethodPost, "/"+string(role)+"/login", body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)
	return resp.Token
}
