package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/portal/core"
	"github.com/smartclass/portal/core/account"
	"github.com/smartclass/portal/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Services) {
	svcs := testutil.NewServices(t)
	return &commandLine{db: new(sql.DB), accounts: svcs.Accounts}, svcs
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if pwd, ok := tt.extra.(string); ok {
				return []byte(pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "grades", "sql"}},
	}
	runCLITests(t, cli, tests)

	t.Run("no database", func(t *testing.T) {
		cli := &commandLine{}
		assert.Equal(t, errNoDatabase, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, svcs := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no role", args: []string{"adduser", "-username", "alice"}, extra: "pw123", wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-role", "admin", "-username", "alice"}, extra: "pw123", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-role", "student", "-username", "alice"}, wantErr: errHelp},
		{name: "student", args: []string{"adduser", "-role", "student", "-username", "alice", "-email", "alice@test.edu"}, extra: "pw123"},
		{name: "faculty", args: []string{"adduser", "-role", "faculty", "-username", "prof", "-first", "Ada", "-last", "Lovelace"}, extra: "pw123"},
	}
	runCLITests(t, cli, tests)

	ctx := context.Background()
	_, err := svcs.Accounts.Authenticate(ctx, "alice", "pw123", account.RoleStudent)
	assert.NoError(t, err)
	fac, err := svcs.Accounts.Authenticate(ctx, "prof", "pw123", account.RoleFaculty)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", fac.GetAccount().FullName())

	t.Run("username taken", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("pw123"), nil }
		err := cli.run([]string{"admin", "adduser", "-role", "faculty", "-username", "alice"})
		assert.True(t, core.IsValidation(err))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, svcs := setup(t)
	st := svcs.CreateStudent(t, "alice")

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "alice"}, wantErr: errHelp},
		{name: "reset", args: []string{"resetpassword", "-username", "Alice"}, extra: "s3cret"},
	}
	runCLITests(t, cli, tests)

	t.Run("account not found", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("lol"), nil }
		err := cli.run([]string{"admin", "resetpassword", "-username", "ghost"})
		assert.True(t, core.IsNotFound(err))
	})

	acc, err := svcs.AccountRepo.GetAccountByID(context.Background(), st.Account.ID)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(acc.PasswordHash, st.Account.PasswordHash))
	assert.NoError(t, acc.CheckPassword("s3cret"))
}
