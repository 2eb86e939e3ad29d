package echoapi_test

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/portal/core/account"
)

func TestServer_requestPasswordReset(t *testing.T) {
	srv, svcs := setup(t)
	st, err := svcs.Accounts.RegisterStudent(ctx(), account.NewAccount{Username: "hero", Email: "hero@test.edu", Password: "pw123"})
	require.NoError(t, err)
	welcomes := len(svcs.Mailer.SentMessages())

	successData := marshallObj(t, map[string]string{
		"message": "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
	linkRegex := regexp.MustCompile("/password-reset/.+/.+")

	tests := []struct {
		httpTest
		emailSent bool
	}{
		{httpTest: httpTest{name: "invalid email", body: []byte(`{"email": "lol"}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": "enter a valid email address"})}},
		{httpTest: httpTest{name: "unknown email", body: []byte(`{"email": "lol@test.edu"}`), wantCode: http.StatusOK, wantData: successData}},
		{httpTest: httpTest{name: "known email", body: []byte(`{"email": "HERO@test.edu"}`), wantCode: http.StatusOK, wantData: successData}, emailSent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(svcs.Mailer.SentMessages())
			req, rec := newRequest(http.MethodPost, "/password-reset", tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt.httpTest, rec)

			sent := svcs.Mailer.SentMessages()[before:]
			if !tt.emailSent {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			assert.Equal(t, st.Account.Email, sent[0].To[0].Address)
			assert.Regexp(t, linkRegex, sent[0].TextContent)
			assert.Regexp(t, linkRegex, sent[0].HTMLContent)
		})
	}
	assert.Len(t, svcs.Mailer.SentMessages(), welcomes+1)
}

func TestServer_confirmPasswordReset(t *testing.T) {
	srv, svcs := setup(t)
	alice := svcs.CreateStudent(t, "alice")
	uid := account.EncodeUID(alice.Account)
	token := svcs.Tokens.MakeToken(alice.Account)

	t.Run("page", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/password-reset/"+uid+"/"+token)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marshallObj(t, map[string]interface{}{
				"form":   "password_reset_confirm",
				"fields": []string{"uid", "token", "password", "password_confirm"},
				"data":   map[string]string{"uid": uid, "token": token},
			}),
		}, rec)
	})

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, account.ResetPassword{UID: reqMsg, Token: reqMsg, Password: reqMsg, PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marshallObj(t, account.ResetPassword{UID: uid, Token: "HE4TS-sigsig-sig", Password: "n3w-pass", PasswordConfirm: "n3w-pass"}),
			wantData: marshallObj(t, map[string]string{"token": "invalid value"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marshallObj(t, account.ResetPassword{UID: uid, Token: token, Password: "n3w-pass", PasswordConfirm: "n3w-pass"}),
			wantData: marshallObj(t, map[string]string{"message": "Password has been reset with the new password."}),
		},
		{
			name: "token already used", wantCode: http.StatusBadRequest,
			body:     marshallObj(t, account.ResetPassword{UID: uid, Token: token, Password: "n3w-pass", PasswordConfirm: "n3w-pass"}),
			wantData: marshallObj(t, map[string]string{"token": "invalid value"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/password-reset/confirm"
	}
	runHTTPTests(t, srv, tests)

	req, rec := newRequest(http.MethodPost, "/student/login", []byte(`{"username": "alice", "password": "n3w-pass"}`))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
